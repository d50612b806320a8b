package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned (wrapped) when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores photo evidence under opaque keys.
type ObjectStorage interface {
	// Upload stores the object at key, replacing any previous content.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object for reading. The caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns an absolute public URL for the object, or "" when the
	// backend has no public endpoint.
	GetURL(key string) string

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
