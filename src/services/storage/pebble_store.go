package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"difychat/src/models"
)

// PebbleStore keeps values in a local pebble database.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) the database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, &models.StorageError{Message: "failed to open pebble store", Err: err}
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(key string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &models.StorageError{Message: fmt.Sprintf("failed to read key %q", key), Err: err}
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *PebbleStore) Set(key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to write key %q", key), Err: err}
	}
	return nil
}

func (s *PebbleStore) Delete(key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to delete key %q", key), Err: err}
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
