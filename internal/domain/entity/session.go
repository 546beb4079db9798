package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session represents provider-issued proof of authentication. It is owned by
// the authentication provider; this process only observes it. A session is
// replaced wholesale on every token refresh and destroyed on sign-out.
type Session struct {
	AccessToken  string         // Opaque credential presented on every authenticated call.
	RefreshToken string         // Credential used to obtain a replacement session after expiry.
	UserID       uuid.UUID      // Stable account identifier, unique per account.
	Email        string         // The email the provider has on record for the account.
	ExpiresAt    time.Time      // Absolute expiry; the session is unusable from this instant.
	UserMetadata map[string]any // Free-form identity metadata carried by the provider (full_name, avatar_url, ...).
}

// Expired reports whether the session has passed its expiry boundary.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// MetadataString returns the named metadata value when it is a non-empty
// string, otherwise "".
func (s *Session) MetadataString(key string) string {
	if s == nil || s.UserMetadata == nil {
		return ""
	}
	if v, ok := s.UserMetadata[key].(string); ok {
		return v
	}

	return ""
}
