package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/domain/repository"
	"critiqit/internal/domain/service"
	"critiqit/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const avatarContentType = "image/webp"

// avatarService implements the AvatarUsecase interface. Avatars live under a
// stable per-user key, so uploads overwrite in place and display URLs carry
// a cache buster.
type avatarService struct {
	uploader service.ObjectUploader
	profiles repository.ProfileRepository
	now      func() time.Time
	logger   *slog.Logger
}

// AvatarServiceParams holds dependencies for avatarService, injected by Fx.
type AvatarServiceParams struct {
	fx.In

	Uploader service.ObjectUploader
	Profiles repository.ProfileRepository
	Logger   *slog.Logger
}

// NewAvatarService is the constructor for avatarService.
func NewAvatarService(params AvatarServiceParams) usecase.AvatarUsecase {
	return &avatarService{
		uploader: params.Uploader,
		profiles: params.Profiles,
		now:      time.Now,
		logger:   params.Logger,
	}
}

// UploadAvatar stores the WebP bytes, points the profile row at the key and
// returns the cache-busted display URL.
func (srv *avatarService) UploadAvatar(ctx context.Context, userID uuid.UUID, webp []byte) (string, error) {
	if len(webp) == 0 {
		return "", domainerrors.ErrValidationFailed.WrapMessage("avatar image is empty")
	}

	key := avatarKey(userID)
	if err := srv.uploader.Upload(ctx, key, webp, avatarContentType); err != nil {
		srv.logger.Error("Avatar upload failed", slog.Any("userID", userID), slog.Any("error", err))

		return "", errors.Wrap(err, "failed to upload avatar")
	}

	if err := srv.profiles.UpdateAvatarURL(ctx, userID, key); err != nil {
		return "", errors.Wrap(err, "failed to record avatar key on profile")
	}

	srv.logger.Info("Avatar replaced", slog.Any("userID", userID), slog.String("key", key))

	return srv.DisplayURL(key), nil
}

// DisplayURL resolves a stored key to its public URL. The key never changes
// while the content does, so every display URL gets a fresh cache buster.
func (srv *avatarService) DisplayURL(key string) string {
	if key == "" {
		return ""
	}

	return fmt.Sprintf("%s?v=%d", srv.uploader.PublicURL(key), srv.now().Unix())
}

func avatarKey(userID uuid.UUID) string {
	return userID.String() + "/avatar.webp"
}
