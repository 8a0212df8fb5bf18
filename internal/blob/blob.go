// Package blob stores panophoto images and level backgrounds by key.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when deleting or reading a key that does not exist.
var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Put uploads body under key and returns the public URL of the object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}
