package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"difychat/src/logging"
	"difychat/src/models"
	"difychat/src/services/storage"
)

const (
	HistoryKey = "dify_chat_history"

	DefaultTitle  = "New Conversation"
	titleMaxRunes = 30
	titleEllipsis = "..."
)

// HistoryRepository is the recency-ordered index of stored conversations.
// Every mutation rewrites the whole collection under HistoryKey.
type HistoryRepository struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	items []models.StoredConversation
}

func NewHistoryRepository(store storage.Store, logger *slog.Logger) *HistoryRepository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &HistoryRepository{store: store, logger: logger, now: time.Now}
}

// Load reads the persisted collection into memory and returns a copy. A
// missing or unreadable value yields an empty history; the error is logged.
func (r *HistoryRepository) Load() []models.StoredConversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil

	data, err := r.store.Get(HistoryKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.logger.Error("failed to read history", "error", err)
		}
		return nil
	}
	var items []models.StoredConversation
	if err := json.Unmarshal(data, &items); err != nil {
		r.logger.Error("error parsing history", "error", err)
		return nil
	}
	r.items = items
	return cloneConversations(r.items)
}

// List returns the in-memory history, newest first.
func (r *HistoryRepository) List() []models.StoredConversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneConversations(r.items)
}

// Get returns the conversation with id.
func (r *HistoryRepository) Get(id string) (*models.StoredConversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ID == id {
			out := cloneConversation(c)
			return &out, nil
		}
	}
	return nil, &models.NotFoundError{Message: fmt.Sprintf("conversation %q not found", id)}
}

// Upsert stores a snapshot of messages under conversationID and reports
// whether anything was written. Nothing is written without a conversation
// id or when the transcript holds only the greeting.
func (r *HistoryRepository) Upsert(conversationID string, messages []models.Message) (bool, error) {
	if conversationID == "" || len(messages) <= 1 {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := models.StoredConversation{
		ID:        conversationID,
		Title:     Title(messages),
		Messages:  models.CloneMessages(messages),
		UpdatedAt: r.now().UnixMilli(),
	}

	next := make([]models.StoredConversation, 0, len(r.items)+1)
	replaced := false
	for _, c := range r.items {
		if c.ID == conversationID {
			next = append(next, entry)
			replaced = true
			continue
		}
		next = append(next, c)
	}
	if !replaced {
		next = append([]models.StoredConversation{entry}, next...)
	}
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].UpdatedAt > next[j].UpdatedAt
	})

	if err := r.persist(next); err != nil {
		return false, err
	}
	r.items = next
	return true, nil
}

// Remove deletes id from the history. An unknown id leaves the store untouched.
func (r *HistoryRepository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.StoredConversation, 0, len(r.items))
	for _, c := range r.items {
		if c.ID != id {
			next = append(next, c)
		}
	}
	if len(next) == len(r.items) {
		return nil
	}
	if err := r.persist(next); err != nil {
		return err
	}
	r.items = next
	return nil
}

func (r *HistoryRepository) persist(items []models.StoredConversation) error {
	if items == nil {
		items = []models.StoredConversation{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return &models.StorageError{Message: "failed to marshal history", Err: err}
	}
	return r.store.Set(HistoryKey, data)
}

// Title derives the display title from the first user message.
func Title(messages []models.Message) string {
	for _, m := range messages {
		if m.Role != models.RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + titleEllipsis
		}
		return m.Content
	}
	return DefaultTitle
}

func cloneConversation(c models.StoredConversation) models.StoredConversation {
	c.Messages = models.CloneMessages(c.Messages)
	return c
}

func cloneConversations(items []models.StoredConversation) []models.StoredConversation {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.StoredConversation, len(items))
	for i, c := range items {
		out[i] = cloneConversation(c)
	}
	return out
}
