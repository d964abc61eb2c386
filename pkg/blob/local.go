package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/attache-dev/attache/pkg/debug"
)

// LocalStore keeps objects as flat files under a single directory.
type LocalStore struct {
	dir string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the directory if needed and returns a store
// rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving blob directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &LocalStore{dir: abs}, nil
}

// resolve maps an object path to a file path, rejecting anything that
// would escape the root directory.
func (s *LocalStore) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return full, nil
}

// Save writes to a temp file first and renames into place, so a
// partially written object is never visible under its final name.
func (s *LocalStore) Save(_ context.Context, path string, r io.Reader, size int64, _ string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("writing blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing blob: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short write: got %d bytes, want %d", written, size)
	}

	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("placing blob: %w", err)
	}
	debug.Log("blob", "saved local object", "path", path, "size", written)
	return nil
}

func (s *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// HealthCheck verifies the root directory still exists.
func (s *LocalStore) HealthCheck(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("blob directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("blob path %s is not a directory", s.dir)
	}
	return nil
}
