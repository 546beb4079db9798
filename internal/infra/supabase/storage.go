package supabase

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"critiqit/config"
	"critiqit/internal/domain/service"

	"github.com/pkg/errors"
)

// storageUploader implements the ObjectUploader interface against the hosted
// object storage. Uploads run with upsert semantics since avatar keys are
// stable per user.
type storageUploader struct {
	api      *Client
	provider service.AuthProvider
	bucket   string
}

// NewStorageUploader is the constructor for storageUploader.
func NewStorageUploader(api *Client, provider service.AuthProvider, cfg *config.Config) (service.ObjectUploader, error) {
	if cfg.Supabase == nil || cfg.Supabase.AvatarsBucket == "" {
		return nil, errors.New("avatars bucket must be configured")
	}

	return &storageUploader{api: api, provider: provider, bucket: cfg.Supabase.AvatarsBucket}, nil
}

// Upload writes data under key, replacing any previous object. The caller's
// own access token is attached so bucket policies can restrict each user to
// their own folder.
func (u *storageUploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	session, err := u.provider.GetSession(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to resolve session for upload")
	}
	if session == nil {
		return errors.New("avatar upload requires a session")
	}

	endpoint := u.api.BaseURL() + "/storage/v1/object/" + u.bucket + "/" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to build upload request")
	}
	req.Header.Set("apikey", u.api.anonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")
	req.Header.Set("x-upsert", "true")

	resp, err := u.api.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "avatar upload request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return errors.Errorf("avatar upload rejected with status %d: %s", resp.StatusCode, payload)
	}

	return nil
}

// PublicURL returns the browsable URL for a stored key.
func (u *storageUploader) PublicURL(key string) string {
	return u.api.BaseURL() + "/storage/v1/object/public/" + u.bucket + "/" + key
}
