package storage

import (
	"io"
	"os"
	"path/filepath"
)

// Store abstracts the audio blob store so handlers never touch the
// filesystem directly. Paths are store-relative names, not absolute paths.
type Store interface {
	Save(name string, data []byte) error
	Open(name string) (io.ReadCloser, error)
	Exists(name string) bool
	Remove(name string) error
	// Path returns a filesystem path for serving the blob, if the store
	// is backed by local disk.
	Path(name string) string
}

// LocalStore keeps blobs in a single directory on local disk
type LocalStore struct {
	dir string
}

// NewLocalStore creates the backing directory if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(name string, data []byte) error {
	return os.WriteFile(s.Path(name), data, 0o644)
}

func (s *LocalStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(s.Path(name))
}

func (s *LocalStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

func (s *LocalStore) Remove(name string) error {
	return os.Remove(s.Path(name))
}

func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
