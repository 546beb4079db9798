package service

import "context"

// ObjectUploader stores avatar objects under a stable key with overwrite
// semantics. Platform-specific implementations (hosted bucket, local disk)
// are selected at composition time.
type ObjectUploader interface {
	// Upload writes data under key, replacing any previous object.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns the browsable URL for a stored key. The key is
	// stable while the content changes, so display sites append a
	// cache-busting query parameter.
	PublicURL(key string) string
}
