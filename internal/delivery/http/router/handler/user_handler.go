package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"critiqit/internal/delivery/http/response"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Avatars are pre-encoded on the client; anything bigger than this is not a
// legitimate avatar.
const maxAvatarBytes = 2 << 20

// UserHandler exposes the synchronized current user and the avatar pipeline.
type UserHandler struct {
	synchronizer usecase.CurrentUserSynchronizer
	sessions     usecase.SessionStore
	avatars      usecase.AvatarUsecase
	logger       *slog.Logger
}

// NewUserHandler is the constructor for UserHandler, injected by Fx.
func NewUserHandler(
	synchronizer usecase.CurrentUserSynchronizer,
	sessions usecase.SessionStore,
	avatars usecase.AvatarUsecase,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		synchronizer: synchronizer,
		sessions:     sessions,
		avatars:      avatars,
		logger:       logger,
	}
}

// Me returns the current synchronized user state without forcing a fetch.
func (h *UserHandler) Me(c echo.Context) error {
	state := h.synchronizer.Snapshot()

	return response.Success(c, http.StatusOK, state, "")
}

// RefreshMe re-joins session and profile and returns the resulting state.
// Concurrent refreshes share one underlying fetch.
func (h *UserHandler) RefreshMe(c echo.Context) error {
	state := h.synchronizer.Refresh(c.Request().Context())

	return response.Success(c, http.StatusOK, state, "")
}

// UploadAvatar stores the posted WebP image as the caller's avatar and
// returns its cache-busted display URL.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	session := h.sessions.Current(c.Request().Context())
	if session == nil {
		return errors.WithStack(domainerrors.ErrSessionMissing)
	}

	if contentType := c.Request().Header.Get(echo.HeaderContentType); contentType != "image/webp" {
		return response.BadRequest(c, "UNSUPPORTED_MEDIA_TYPE", "Avatar must be image/webp")
	}

	webp, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAvatarBytes+1))
	if err != nil {
		return errors.Wrap(err, "failed to read avatar body")
	}
	if len(webp) == 0 {
		return response.BadRequest(c, "EMPTY_BODY", "Avatar image is required")
	}
	if len(webp) > maxAvatarBytes {
		return response.BadRequest(c, "AVATAR_TOO_LARGE", "Avatar exceeds the size limit")
	}

	url, err := h.avatars.UploadAvatar(c.Request().Context(), session.UserID, webp)
	if err != nil {
		return errors.WithStack(err)
	}

	// The profile row changed; refresh so the next snapshot shows the new
	// avatar.
	go h.synchronizer.Refresh(context.Background())

	return response.Success(c, http.StatusOK, map[string]string{"avatarUrl": url}, "Avatar updated")
}
