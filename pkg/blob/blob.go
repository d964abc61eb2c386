// Package blob abstracts attachment content storage. Metadata lives in
// storage.Store; the bytes live behind a blob.Store.
package blob

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists at the given path.
var ErrNotFound = errors.New("blob not found")

// Store reads and writes attachment content by opaque path.
type Store interface {
	// Save writes the object and returns nil once it is durably stored.
	Save(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Open returns a reader for the object, or ErrNotFound.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an
	// error; the metadata row is the source of truth.
	Delete(ctx context.Context, path string) error

	// HealthCheck verifies the backend is reachable and writable.
	HealthCheck(ctx context.Context) error
}

// StorageName derives a fresh, collision-free object name from the
// client-supplied filename. Only the extension survives; everything
// else is replaced with a random UUID so client names can never collide
// or traverse paths.
func StorageName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return uuid.NewString() + ext
}
