package models

import "time"

// StoredConversation is one persisted history entry, keyed by the
// server-assigned conversation id.
type StoredConversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt int64     `json:"updatedAt"` // Unix milliseconds
}

// Updated returns the last modification time.
func (c StoredConversation) Updated() time.Time {
	return time.UnixMilli(c.UpdatedAt)
}
