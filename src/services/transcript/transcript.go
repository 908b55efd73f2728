// Package transcript holds the ordered message list of one conversation and
// applies stream events to its in-flight assistant message.
package transcript

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"difychat/src/models"
	"difychat/src/services/stream"
)

const (
	WelcomeID      = "welcome"
	WelcomeText    = "Hello! Start a new conversation or check history."
	NewChatText    = "Started a new conversation."
	errorSuffixFmt = "\n\n[Error: %s]"
)

// Transcript is not safe for concurrent use; app.App serializes access.
type Transcript struct {
	messages []models.Message
	index    map[string]int
	now      func() time.Time
}

// New starts a transcript with a single assistant greeting.
func New(greeting models.Message) *Transcript {
	return FromMessages([]models.Message{greeting})
}

// FromMessages rebuilds a transcript from a stored snapshot. Messages left
// flagged as streaming by an interrupted session are finalized.
func FromMessages(msgs []models.Message) *Transcript {
	t := &Transcript{now: time.Now}
	t.messages = models.CloneMessages(msgs)
	for i := range t.messages {
		t.messages[i].IsStreaming = false
	}
	t.reindex()
	return t
}

// Welcome is the greeting shown on startup.
func Welcome(now time.Time) models.Message {
	return models.Message{ID: WelcomeID, Role: models.RoleAssistant, Content: WelcomeText, Timestamp: now.UnixMilli()}
}

// NewChatGreeting is the greeting shown when the user starts over.
func NewChatGreeting(now time.Time) models.Message {
	return models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: NewChatText, Timestamp: now.UnixMilli()}
}

func (t *Transcript) reindex() {
	t.index = make(map[string]int, len(t.messages))
	for i, m := range t.messages {
		t.index[m.ID] = i
	}
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a deep copy in display order.
func (t *Transcript) Messages() []models.Message {
	return models.CloneMessages(t.messages)
}

// Get returns a copy of the message with id.
func (t *Transcript) Get(id string) (models.Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return models.Message{}, false
	}
	return t.messages[i].Clone(), true
}

// Streaming returns the id of the in-flight message, if any.
func (t *Transcript) Streaming() (string, bool) {
	for _, m := range t.messages {
		if m.IsStreaming {
			return m.ID, true
		}
	}
	return "", false
}

// BeginTurn appends the user's query and an empty streaming assistant
// placeholder in one step and returns the placeholder id. Any message still
// streaming from an earlier turn is finalized first.
func (t *Transcript) BeginTurn(query string) string {
	if id, ok := t.Streaming(); ok {
		t.Finalize(id)
	}
	now := t.now()
	user := models.Message{ID: uuid.NewString(), Role: models.RoleUser, Content: query, Timestamp: now.UnixMilli()}
	bot := models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Timestamp: now.UnixMilli(), IsStreaming: true}
	t.messages = append(t.messages, user, bot)
	t.index[user.ID] = len(t.messages) - 2
	t.index[bot.ID] = len(t.messages) - 1
	return bot.ID
}

// Apply merges ev into the message with targetID and reports whether the
// transcript changed. An unknown target is ignored.
func (t *Transcript) Apply(targetID string, ev stream.Event) bool {
	i, ok := t.index[targetID]
	if !ok {
		return false
	}
	m := &t.messages[i]
	if m.Role != models.RoleAssistant {
		return false
	}

	switch ev.Kind {
	case stream.EventDelta:
		if !m.IsStreaming {
			return false
		}
		m.Content += ev.Text
		return ev.Text != ""
	case stream.EventCitations:
		if ev.Citations == nil {
			return false
		}
		m.Citations = append([]models.Citation{}, ev.Citations...)
		return true
	case stream.EventError:
		msg := "Network error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		m.Content += fmt.Sprintf(errorSuffixFmt, msg)
		m.IsStreaming = false
		return true
	case stream.EventDone:
		return t.Finalize(targetID)
	default:
		return false
	}
}

// Finalize clears the streaming flag on targetID without touching content.
func (t *Transcript) Finalize(targetID string) bool {
	i, ok := t.index[targetID]
	if !ok || !t.messages[i].IsStreaming {
		return false
	}
	t.messages[i].IsStreaming = false
	return true
}

// FirstUserMessage returns the earliest user turn.
func (t *Transcript) FirstUserMessage() (models.Message, bool) {
	for _, m := range t.messages {
		if m.Role == models.RoleUser {
			return m.Clone(), true
		}
	}
	return models.Message{}, false
}
