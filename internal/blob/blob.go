// Package blob stores the raw bytes of uploaded documents. Keys are opaque
// content handles chosen by the caller.
package blob

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("blob not found")

// Store streams content in and out so large uploads are never required to
// sit in memory twice.
type Store interface {
	// Put stores size bytes read from r under key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Get writes the content stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
