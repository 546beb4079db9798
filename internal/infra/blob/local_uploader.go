// Package blob provides an ObjectUploader backed by a portable blob bucket.
// It serves local development, where avatars land on disk instead of the
// hosted storage.
package blob

import (
	"context"
	"strings"

	"critiqit/internal/domain/service"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// localUploader implements the ObjectUploader interface on a fileblob
// bucket.
type localUploader struct {
	bucket  *blob.Bucket
	baseURL string
}

// NewLocalUploader opens (or creates) a directory-backed bucket. baseURL is
// what a local static file server prefixes the stored keys with.
func NewLocalUploader(dir, baseURL string) (service.ObjectUploader, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local avatar bucket")
	}

	return &localUploader{
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload writes data under key, replacing any previous object.
func (u *localUploader) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := u.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return errors.Wrap(err, "failed to write avatar to local bucket")
	}

	return nil
}

// PublicURL returns the local static URL for a stored key.
func (u *localUploader) PublicURL(key string) string {
	return u.baseURL + "/" + key
}

// Close releases the underlying bucket.
func (u *localUploader) Close() error {
	return errors.WithStack(u.bucket.Close())
}
