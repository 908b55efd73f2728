// Package storage provides the key-value persistence used for history,
// caller identity and saved credentials.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"difychat/src/models"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a flat key-value store. Set replaces the whole value in one
// step, so readers never observe a partially written value.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Open creates the store for backend rooted at dataDir.
func Open(backend, dataDir string) (Store, error) {
	switch backend {
	case "file":
		return NewFileStore(filepath.Join(dataDir, "store"))
	case "pebble":
		return NewPebbleStore(filepath.Join(dataDir, "pebble"))
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dataDir, "difychat.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, &models.ValidationError{Message: fmt.Sprintf("unknown storage backend %q", backend)}
	}
}
