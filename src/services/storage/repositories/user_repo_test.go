package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difychat/src/models"
	"difychat/src/services/storage"
)

func TestUserIDGeneratedOnce(t *testing.T) {
	store := storage.NewMemoryStore()
	repo := NewUserRepository(store)
	repo.rand = func(n int) int {
		assert.Equal(t, 1000000, n)
		return 4242
	}

	id, err := repo.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, "web-user-4242", id)

	repo.rand = func(int) int { return 1 }
	again, err := repo.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, "web-user-4242", again)

	stored, err := store.Get(UserIDKey)
	require.NoError(t, err)
	assert.Equal(t, "web-user-4242", string(stored))
}

func TestAPIKeys(t *testing.T) {
	repo := NewAPIKeyRepository(storage.NewMemoryStore())

	_, err := repo.Active()
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)

	require.NoError(t, repo.Add(models.APIKey{Title: "work", Key: "app-1"}))
	require.NoError(t, repo.Add(models.APIKey{Title: "home", Key: "app-2", URL: "http://localhost:5001"}))

	var ve *models.ValidationError
	assert.ErrorAs(t, repo.Add(models.APIKey{Title: "work", Key: "app-3"}), &ve)
	assert.ErrorAs(t, repo.Add(models.APIKey{Title: "empty"}), &ve)

	active, err := repo.Active()
	require.NoError(t, err)
	assert.Equal(t, "work", active.Title)

	require.NoError(t, repo.SetActive("home"))
	active, err = repo.Active()
	require.NoError(t, err)
	assert.Equal(t, "app-2", active.Key)
	assert.Equal(t, "http://localhost:5001", active.URL)

	assert.ErrorAs(t, repo.SetActive("nope"), &nf)

	require.NoError(t, repo.Remove("home"))
	assert.ErrorAs(t, repo.Remove("home"), &nf)

	active, err = repo.Active()
	require.NoError(t, err)
	assert.Equal(t, "work", active.Title)
}
