package storage

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"difychat/src/models"
)

// FileStore keeps one JSON file per key under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &models.StorageError{Message: "failed to create store directory", Err: err}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &models.StorageError{Message: fmt.Sprintf("failed to read key %q", key), Err: err}
	}
	return data, nil
}

// Set writes to a temp file and renames it over the old value.
func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return &models.StorageError{Message: "failed to create temp file", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return &models.StorageError{Message: fmt.Sprintf("failed to write key %q", key), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to write key %q", key), Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return &models.StorageError{Message: "failed to set file mode", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to replace key %q", key), Err: err}
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return &models.StorageError{Message: fmt.Sprintf("failed to delete key %q", key), Err: err}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
