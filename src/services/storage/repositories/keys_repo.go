package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"difychat/src/models"
	"difychat/src/services/storage"
)

const APIKeysKey = "dify_chat_api_keys"

// APIKeyRepository keeps saved API keys and which one is active.
type APIKeyRepository struct {
	store storage.Store
}

func NewAPIKeyRepository(store storage.Store) *APIKeyRepository {
	return &APIKeyRepository{store: store}
}

func (r *APIKeyRepository) GetAll() ([]models.APIKey, error) {
	data, err := r.store.Get(APIKeysKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []models.APIKey{}, nil
		}
		return nil, err
	}
	var config models.APIKeysConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &models.StorageError{Message: "failed to parse API keys", Err: err}
	}
	return config.Keys, nil
}

func (r *APIKeyRepository) SaveAll(keys []models.APIKey) error {
	data, err := json.Marshal(models.APIKeysConfig{Keys: keys})
	if err != nil {
		return &models.StorageError{Message: "failed to marshal API keys", Err: err}
	}
	return r.store.Set(APIKeysKey, data)
}

// Add saves a new key. The first key saved becomes active.
func (r *APIKeyRepository) Add(key models.APIKey) error {
	if key.Key == "" {
		return &models.ValidationError{Message: "API key cannot be empty"}
	}
	if key.Title == "" {
		key.Title = "Default"
	}
	keys, err := r.GetAll()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.Title == key.Title {
			return &models.ValidationError{Message: fmt.Sprintf("an API key titled %q already exists", key.Title)}
		}
	}
	key.Active = len(keys) == 0
	keys = append(keys, key)
	return r.SaveAll(keys)
}

func (r *APIKeyRepository) Remove(title string) error {
	keys, err := r.GetAll()
	if err != nil {
		return err
	}
	newKeys := make([]models.APIKey, 0, len(keys))
	for _, k := range keys {
		if k.Title != title {
			newKeys = append(newKeys, k)
		}
	}
	if len(newKeys) == len(keys) {
		return &models.NotFoundError{Message: fmt.Sprintf("API key %q not found", title)}
	}
	return r.SaveAll(newKeys)
}

func (r *APIKeyRepository) SetActive(title string) error {
	keys, err := r.GetAll()
	if err != nil {
		return err
	}
	found := false
	for i := range keys {
		keys[i].Active = (keys[i].Title == title)
		found = found || keys[i].Active
	}
	if !found {
		return &models.NotFoundError{Message: fmt.Sprintf("API key %q not found", title)}
	}
	return r.SaveAll(keys)
}

// Active returns the active key, falling back to the first saved key.
func (r *APIKeyRepository) Active() (models.APIKey, error) {
	keys, err := r.GetAll()
	if err != nil {
		return models.APIKey{}, err
	}
	if len(keys) == 0 {
		return models.APIKey{}, &models.NotFoundError{Message: "No API keys found. Please add an API key first"}
	}
	for _, k := range keys {
		if k.Active {
			return k, nil
		}
	}
	return keys[0], nil
}
