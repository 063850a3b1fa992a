package objstore

import (
	"context"
	"io"
	"strings"
)

// Store is the capability boundary for binary object storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores an object under the given key. The declared size is
	// validated against the configured maximum before any bytes are sent;
	// oversize objects fail with ErrObjectTooLarge and the store receives
	// nothing.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Get returns a reader over the object's bytes and its size.
	// Fails with ErrObjectNotFound if the key is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Delete removes the object. Fails with ErrObjectNotFound if the key is
	// already absent, which callers doing idempotent cleanup may treat as
	// success.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under the key.
	Exists(ctx context.Context, key string) bool
}

// validateKey rejects empty keys and path traversal attempts.
func validateKey(key string) error {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
