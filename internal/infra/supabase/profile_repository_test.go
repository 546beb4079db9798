package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"critiqit/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByUserID(t *testing.T) {
	userID := uuid.New()

	var gotQuery, gotAccept, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/profiles", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": %q,
			"username": "alice",
			"full_name": "Alice Liddell",
			"avatar_url": "%s/avatar.webp",
			"bio": null,
			"created_at": "2025-03-01T12:00:00Z"
		}`, userID.String(), userID.String())
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	repo := NewProfileRepository(api, signedInProvider(t, api, userID))

	record, err := repo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, userID, record.UserID)
	require.NotNil(t, record.Username)
	assert.Equal(t, "alice", *record.Username)
	require.NotNil(t, record.FullName)
	assert.Equal(t, "Alice Liddell", *record.FullName)
	assert.Nil(t, record.Bio)
	require.NotNil(t, record.CreatedAt)

	assert.Contains(t, gotQuery, "select=id%2Cusername%2Cfull_name%2Cavatar_url%2Cbio%2Ccreated_at")
	assert.Contains(t, gotQuery, "id=eq."+userID.String())
	assert.Equal(t, "application/vnd.pgrst.object+json", gotAccept, "maybe-single read")
	assert.Contains(t, gotAuth, "Bearer ", "row access runs under the user's own token")
}

func TestFindByUserID_NoRowIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Zero rows under the object Accept header.
		w.WriteHeader(http.StatusNotAcceptable)
		fmt.Fprint(w, `{"message": "JSON object requested, multiple (or no) rows returned"}`)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	repo := NewProfileRepository(api, signedInProvider(t, api, uuid.New()))

	record, err := repo.FindByUserID(context.Background(), uuid.New())
	require.NoError(t, err, "a missing profile row is a valid state")
	assert.Nil(t, record)
}

func TestFindByUserID_ServerErrorIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	repo := NewProfileRepository(api, signedInProvider(t, api, uuid.New()))

	_, err := repo.FindByUserID(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestFindByUserID_NoSession(t *testing.T) {
	api := testClient(t, "https://unused.example.com")
	provider := NewAuthClient(api, testConfig(api.BaseURL()), testLogger())
	repo := NewProfileRepository(api, provider)

	_, err := repo.FindByUserID(context.Background(), uuid.New())
	assert.Error(t, err, "profile access without a session is a caller bug")
}

func TestUpsert(t *testing.T) {
	userID := uuid.New()

	var gotPrefer string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/rest/v1/profiles", r.URL.Path)
		gotPrefer = r.Header.Get("Prefer")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	repo := NewProfileRepository(api, signedInProvider(t, api, userID))

	username := "alice"
	record := &entity.ProfileRecord{UserID: userID, Username: &username}
	require.NoError(t, repo.Upsert(context.Background(), record))

	assert.Equal(t, "resolution=merge-duplicates", gotPrefer, "re-running the upsert must not conflict")
	assert.Equal(t, userID.String(), gotBody["id"])
	assert.Equal(t, "alice", gotBody["username"])
}

func TestUpdateAvatarURL(t *testing.T) {
	userID := uuid.New()

	var gotMethod, gotQuery string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	api := testClient(t, server.URL)
	repo := NewProfileRepository(api, signedInProvider(t, api, userID))

	key := userID.String() + "/avatar.webp"
	require.NoError(t, repo.UpdateAvatarURL(context.Background(), userID, key))

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Contains(t, gotQuery, "id=eq."+userID.String())
	assert.Equal(t, key, gotBody["avatar_url"])
}
