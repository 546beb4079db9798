package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"critiqit/internal/domain/entity"
	domainerrors "critiqit/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionJSON(userID uuid.UUID) string {
	return fmt.Sprintf(`{
		"access_token": "access-token",
		"refresh_token": "refresh-token",
		"expires_in": 3600,
		"expires_at": %d,
		"user": {
			"id": %q,
			"email": "alice@example.com",
			"user_metadata": {"full_name": "Alice Liddell"}
		}
	}`, time.Now().Add(time.Hour).Unix(), userID.String())
}

func TestSignInWithPassword(t *testing.T) {
	userID := uuid.New()

	var gotPath, gotGrant, gotAPIKey string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGrant = r.URL.Query().Get("grant_type")
		gotAPIKey = r.Header.Get("apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sessionJSON(userID))
	}))
	defer server.Close()

	provider := NewAuthClient(testClient(t, server.URL), testConfig(server.URL), testLogger())

	var mu sync.Mutex
	var events []entity.AuthEvent
	unsubscribe := provider.OnAuthStateChange(func(event entity.AuthEvent, _ *entity.Session) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})
	defer unsubscribe()

	session, err := provider.SignInWithPassword(context.Background(), "alice@example.com", "password123", "captcha-token")
	require.NoError(t, err)

	assert.Equal(t, "/auth/v1/token", gotPath)
	assert.Equal(t, "password", gotGrant)
	assert.Equal(t, "anon-key", gotAPIKey)
	security, ok := gotBody["gotrue_meta_security"].(map[string]any)
	require.True(t, ok, "captcha token travels in gotrue_meta_security")
	assert.Equal(t, "captcha-token", security["captcha_token"])

	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Equal(t, "Alice Liddell", session.MetadataString("full_name"))

	held, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.Equal(t, session.AccessToken, held.AccessToken)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, entity.EventSignedIn, events[0])
}

func TestSignInWithPassword_ProviderErrorVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error_code": "invalid_credentials", "msg": "Invalid login credentials"}`)
	}))
	defer server.Close()

	provider := NewAuthClient(testClient(t, server.URL), testConfig(server.URL), testLogger())

	_, err := provider.SignInWithPassword(context.Background(), "alice@example.com", "wrong", "captcha-token")
	require.Error(t, err)

	var apiErr *domainerrors.AuthAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message(), "provider message is preserved verbatim")

	// A failed sign-in leaves no session behind.
	held, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, held)
}

func TestSignUp_ConfirmationPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// No tokens until the emailed OTP verifies.
		fmt.Fprintf(w, `{"user": {"id": %q, "email": "alice@example.com"}}`, uuid.New().String())
	}))
	defer server.Close()

	provider := NewAuthClient(testClient(t, server.URL), testConfig(server.URL), testLogger())

	session, err := provider.SignUp(context.Background(), "alice@example.com", "password123", "captcha-token")
	require.NoError(t, err)
	assert.Nil(t, session, "confirmation-pending sign-up yields no session")

	held, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, held)
}

func TestVerifyOTP(t *testing.T) {
	userID := uuid.New()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sessionJSON(userID))
	}))
	defer server.Close()

	provider := NewAuthClient(testClient(t, server.URL), testConfig(server.URL), testLogger())

	session, err := provider.VerifyOTP(context.Background(), "signup", "alice@example.com", "123456", "")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, "/auth/v1/verify", gotPath)
	assert.Equal(t, "signup", gotBody["type"])
	assert.Equal(t, "alice@example.com", gotBody["email"])
	assert.Equal(t, "123456", gotBody["token"])
}

func TestSetSession_ReconstructsFromClaims(t *testing.T) {
	userID := uuid.New()
	provider := NewAuthClient(testClient(t, "https://unused.example.com"), testConfig("https://unused.example.com"), testLogger())

	accessToken := accessTokenFor(t, userID, "alice@example.com")
	session, err := provider.SetSession(context.Background(), accessToken, "refresh-token")
	require.NoError(t, err)

	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "alice@example.com", session.Email)
	assert.Equal(t, accessToken, session.AccessToken)
	assert.Equal(t, "refresh-token", session.RefreshToken)
	assert.False(t, session.Expired(time.Now()))
}

func TestSetSession_GarbageTokens(t *testing.T) {
	provider := NewAuthClient(testClient(t, "https://unused.example.com"), testConfig("https://unused.example.com"), testLogger())

	_, err := provider.SetSession(context.Background(), "not-a-jwt", "")
	assert.Error(t, err)
}

func TestSignOut_ClearsLocallyBeforeRevocation(t *testing.T) {
	userID := uuid.New()

	var logoutAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			logoutAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)

			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	provider := signedInProvider(t, api, userID)

	var mu sync.Mutex
	var sawSignedOut bool
	var sessionAtEvent *entity.Session
	unsubscribe := provider.OnAuthStateChange(func(event entity.AuthEvent, session *entity.Session) {
		if event == entity.EventSignedOut {
			mu.Lock()
			defer mu.Unlock()
			sawSignedOut = true
			sessionAtEvent = session
		}
	})
	defer unsubscribe()

	require.NoError(t, provider.SignOut(context.Background()))

	held, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, held)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawSignedOut)
	assert.Nil(t, sessionAtEvent)
	assert.Contains(t, logoutAuth, "Bearer ", "revocation carries the user's own token")
}

func TestSignOut_RevocationFailureStillSignsOutLocally(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	provider := signedInProvider(t, api, uuid.New())

	err := provider.SignOut(context.Background())
	assert.Error(t, err, "the revocation failure is reported")

	held, getErr := provider.GetSession(context.Background())
	require.NoError(t, getErr)
	assert.Nil(t, held, "the local session is gone regardless")
}
