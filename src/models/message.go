// message.go - Defines the Message struct for representing transcript entries across the application.
// This struct is used for history storage, stream reconciliation, and display.

package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single transcript entry. Field names match the
// persisted history layout so existing stores stay readable.
type Message struct {
	ID          string     `json:"id"`
	Role        Role       `json:"role"`
	Content     string     `json:"content"`
	Timestamp   int64      `json:"timestamp"` // Unix milliseconds
	Citations   []Citation `json:"citations,omitempty"`
	IsStreaming bool       `json:"isStreaming,omitempty"`
}

// Time returns the creation time of the message.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Citations != nil {
		c := make([]Citation, len(m.Citations))
		copy(c, m.Citations)
		m.Citations = c
	}
	return m
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Citation is a retrieval reference attached to an assistant answer.
type Citation struct {
	Position     int     `json:"position"`
	DatasetName  string  `json:"dataset_name"`
	DatasetID    string  `json:"dataset_id"`
	DocumentName string  `json:"document_name"`
	DocumentID   string  `json:"document_id"`
	SegmentID    string  `json:"segment_id"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

// Usage reports token accounting from the end-of-message metadata.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
