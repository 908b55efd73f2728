package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"difychat/src/models"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

// SQLiteStore keeps values in a single-table sqlite database.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &models.StorageError{Message: "failed to create store directory", Err: err}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &models.StorageError{Message: "failed to open sqlite store", Err: err}
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;", kvSchema} {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, &models.StorageError{Message: fmt.Sprintf("failed to apply %q", stmt), Err: err}
		}
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var v []byte
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &models.StorageError{Message: fmt.Sprintf("failed to read key %q", key), Err: err}
	}
	return v, nil
}

func (s *SQLiteStore) Set(key string, value []byte) error {
	_, err := s.conn.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to write key %q", key), Err: err}
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("failed to delete key %q", key), Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
