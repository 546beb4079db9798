package entity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultFullName is published when neither the profile row nor the auth
// metadata carries a display name.
const DefaultFullName = "Not Set"

// ProfileRecord is the application-owned row of user-facing attributes, one
// per account. Profile creation is eventually consistent with sign-up, so a
// missing row is a valid state, not an error.
type ProfileRecord struct {
	UserID    uuid.UUID  `json:"id"`
	Username  *string    `json:"username"`   // Unique, user-chosen; may be unset.
	FullName  *string    `json:"full_name"`  // Display name.
	AvatarURL *string    `json:"avatar_url"` // A storage object key, not a browsable URL.
	Bio       *string    `json:"bio"`
	CreatedAt *time.Time `json:"created_at"`
}

// CurrentUser is the derived read model joining session identity with the
// profile row. It is recomputed wholesale on every sync cycle and never
// mutated field by field.
type CurrentUser struct {
	UserID    uuid.UUID
	Email     string
	Username  string
	FullName  string
	AvatarURL string
	Bio       string
	CreatedAt *time.Time
}

// NewCurrentUser joins a valid session with an optional profile row.
// Precedence per field: profile row, then session metadata, then a fixed
// default. A nil profile (missing row or failed fetch) therefore still
// produces a usable CurrentUser; session validity alone decides existence.
func NewCurrentUser(session *Session, profile *ProfileRecord) *CurrentUser {
	user := &CurrentUser{
		UserID:    session.UserID,
		Email:     session.Email,
		FullName:  session.MetadataString("full_name"),
		AvatarURL: session.MetadataString("avatar_url"),
	}
	if user.Email == "" {
		user.Email = session.MetadataString("email")
	}

	if profile != nil {
		if profile.Username != nil {
			user.Username = *profile.Username
		}
		if profile.FullName != nil {
			user.FullName = *profile.FullName
		}
		if profile.AvatarURL != nil {
			user.AvatarURL = *profile.AvatarURL
		}
		if profile.Bio != nil {
			user.Bio = *profile.Bio
		}
		user.CreatedAt = profile.CreatedAt
	}

	if user.FullName == "" {
		user.FullName = DefaultFullName
	}

	return user
}
