package usecase

import (
	"context"

	"github.com/google/uuid"
)

// AvatarUsecase stores a user's avatar image and keeps the profile row
// pointing at it.
type AvatarUsecase interface {
	// UploadAvatar writes the already-encoded WebP bytes under the user's
	// stable avatar key, updates avatar_url on the profile row, and returns
	// a display URL carrying a cache-busting query parameter.
	UploadAvatar(ctx context.Context, userID uuid.UUID, webp []byte) (string, error)

	// DisplayURL resolves a stored avatar key to a cache-busted public URL.
	DisplayURL(key string) string
}
