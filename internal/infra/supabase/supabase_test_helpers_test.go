package supabase

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"critiqit/config"
	"critiqit/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Supabase: &config.SupabaseConfig{
			URL:           baseURL,
			AnonKey:       "anon-key",
			AvatarsBucket: "avatars",
		},
	}
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	api, err := NewClient(testConfig(baseURL), testLogger())
	require.NoError(t, err)

	return api
}

// accessTokenFor builds a provider-shaped access token for the given user.
func accessTokenFor(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

// signedInProvider returns an auth client already holding a session for the
// given user, without any network traffic.
func signedInProvider(t *testing.T, api *Client, userID uuid.UUID) service.AuthProvider {
	t.Helper()

	provider := NewAuthClient(api, testConfig(api.BaseURL()), testLogger())
	_, err := provider.SetSession(t.Context(), accessTokenFor(t, userID, "alice@example.com"), "refresh-token")
	require.NoError(t, err)

	return provider
}
