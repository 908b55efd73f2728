package repositories

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"difychat/src/services/storage"
)

const (
	UserIDKey    = "dify_chat_user_id"
	userIDPrefix = "web-user-"
	userIDRange  = 1000000
)

// UserRepository owns the caller identifier sent with every request.
type UserRepository struct {
	store storage.Store
	rand  func(n int) int
}

func NewUserRepository(store storage.Store) *UserRepository {
	return &UserRepository{store: store, rand: rand.Intn}
}

// GetOrCreate returns the stored caller id, generating and persisting one
// on first use.
func (r *UserRepository) GetOrCreate() (string, error) {
	data, err := r.store.Get(UserIDKey)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	id := fmt.Sprintf("%s%d", userIDPrefix, r.rand(userIDRange))
	if err := r.store.Set(UserIDKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}
