// Package repository defines interfaces for data persistence, implemented by
// the infra layer.
package repository

import (
	"context"

	"critiqit/internal/domain/entity"

	"github.com/google/uuid"
)

// ProfileRepository is the point-access interface to the profiles table.
// Row-level security restricts writes to the caller's own row; the store
// enforces that server-side, so no ownership checks happen here.
type ProfileRepository interface {
	// FindByUserID returns the profile row for a user, or (nil, nil) when no
	// row exists yet. Profile creation is eventually consistent with
	// sign-up, so absence is an expected state.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.ProfileRecord, error)

	// Upsert creates or replaces the caller's own profile row.
	Upsert(ctx context.Context, record *entity.ProfileRecord) error

	// UpdateAvatarURL sets just the avatar object key on the caller's row.
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) error
}
