package supabase

import (
	"context"
	"net/http"

	"critiqit/internal/domain/entity"
	domainerrors "critiqit/internal/domain/errors"
	"critiqit/internal/domain/repository"
	"critiqit/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const profileColumns = "id,username,full_name,avatar_url,bio,created_at"

// profileRepository implements the ProfileRepository interface over the
// hosted REST endpoint. Every call carries the user's own access token so
// row-level security decides what is visible and writable; the repository
// adds no authorization of its own.
type profileRepository struct {
	api      *Client
	provider service.AuthProvider
}

// NewProfileRepository is the constructor for profileRepository.
func NewProfileRepository(api *Client, provider service.AuthProvider) repository.ProfileRepository {
	return &profileRepository{api: api, provider: provider}
}

// FindByUserID reads the profile row by primary key with maybe-single
// semantics: no row is (nil, nil), not an error, because profile creation
// is eventually consistent with sign-up.
func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.ProfileRecord, error) {
	headers, err := r.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	// The object Accept header makes zero rows a 406, which we map back to
	// absence below.
	headers["Accept"] = "application/vnd.pgrst.object+json"

	path := "/rest/v1/profiles?select=" + profileColumns + "&id=eq." + userID.String()

	var record entity.ProfileRecord
	if err := r.api.do(ctx, http.MethodGet, path, headers, nil, &record); err != nil {
		if isNoRows(err) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to read profile row")
	}

	return &record, nil
}

// Upsert creates or replaces the caller's own profile row.
func (r *profileRepository) Upsert(ctx context.Context, record *entity.ProfileRecord) error {
	headers, err := r.authHeaders(ctx)
	if err != nil {
		return err
	}
	headers["Prefer"] = "resolution=merge-duplicates"

	if err := r.api.do(ctx, http.MethodPost, "/rest/v1/profiles", headers, record, nil); err != nil {
		return errors.Wrap(err, "failed to upsert profile row")
	}

	return nil
}

// UpdateAvatarURL sets just the avatar object key on the caller's row.
func (r *profileRepository) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) error {
	headers, err := r.authHeaders(ctx)
	if err != nil {
		return err
	}

	path := "/rest/v1/profiles?id=eq." + userID.String()
	body := map[string]string{"avatar_url": avatarURL}

	if err := r.api.do(ctx, http.MethodPatch, path, headers, body, nil); err != nil {
		return errors.Wrap(err, "failed to update avatar key")
	}

	return nil
}

// authHeaders builds the per-user authorization header from the current
// session. Profile access without a session is a caller bug.
func (r *profileRepository) authHeaders(ctx context.Context) (map[string]string, error) {
	session, err := r.provider.GetSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve session for profile access")
	}
	if session == nil {
		return nil, errors.New("profile access requires a session")
	}

	return map[string]string{"Authorization": "Bearer " + session.AccessToken}, nil
}

// isNoRows detects the maybe-single miss (the store answers 406 when the
// object Accept header matches zero rows).
func isNoRows(err error) bool {
	var apiErr *domainerrors.AuthAPIError

	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotAcceptable
}
