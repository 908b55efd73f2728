// Package app owns the live conversation: the transcript on screen, the
// server-assigned conversation id, the history index and the stream in
// flight. The terminal UI and the CLI are thin shells over it.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"difychat/src/logging"
	"difychat/src/models"
	"difychat/src/services/storage/repositories"
	"difychat/src/services/stream"
	"difychat/src/services/transcript"
)

// Streamer starts one streaming exchange. *stream.Client implements it.
type Streamer interface {
	Stream(ctx context.Context, req stream.Request) *stream.Session
}

// Update is delivered to the caller of Send for every event that reached the
// transcript. Messages is a snapshot taken after the event was applied.
type Update struct {
	Event          stream.Event
	ConversationID string
	Messages       []models.Message
}

type Options struct {
	Streamer Streamer
	History  *repositories.HistoryRepository
	UserID   string
	Logger   *slog.Logger
}

type App struct {
	streamer Streamer
	history  *repositories.HistoryRepository
	userID   string
	logger   *slog.Logger
	now      func() time.Time

	mu             sync.Mutex
	transcript     *transcript.Transcript
	conversationID string
	seq            uint64
	cancel         context.CancelFunc
	targetID       string
}

// New loads the history index and starts on the welcome greeting.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{
		streamer: opts.Streamer,
		history:  opts.History,
		userID:   opts.UserID,
		logger:   logger,
		now:      time.Now,
	}
	a.history.Load()
	a.transcript = transcript.New(transcript.Welcome(a.now()))
	return a
}

// Send starts a turn for query. The returned channel carries one Update per
// applied event and closes when the session ends or is superseded. Callers
// must drain it.
func (a *App) Send(ctx context.Context, query string) (<-chan Update, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &models.ValidationError{Message: "message cannot be empty"}
	}

	a.mu.Lock()
	a.stopLocked()
	targetID := a.transcript.BeginTurn(query)
	a.targetID = targetID
	seq := a.seq
	sctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	req := stream.Request{Query: query, ConversationID: a.conversationID, User: a.userID}
	a.mu.Unlock()

	a.logger.Debug("sending message", "conversation_id", req.ConversationID, "query_len", len(query))
	session := a.streamer.Stream(sctx, req)

	out := make(chan Update, 16)
	go func() {
		defer close(out)
		defer cancel()
		for ev := range session.Events() {
			u, ok := a.apply(seq, targetID, ev)
			if !ok {
				continue
			}
			out <- u
		}
	}()
	return out, nil
}

// apply merges ev into the transcript unless the session has been superseded.
func (a *App) apply(seq uint64, targetID string, ev stream.Event) (Update, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		a.logger.Debug("dropping event from stale session", "kind", ev.Kind.String())
		return Update{}, false
	}

	changed := false
	switch ev.Kind {
	case stream.EventConversation:
		a.conversationID = ev.ConversationID
		changed = true
	case stream.EventDone:
		changed = a.transcript.Apply(targetID, ev)
		if ev.State == stream.StateCancelled {
			a.logger.Info("stream cancelled", "conversation_id", a.conversationID)
		}
		a.cancel = nil
		a.targetID = ""
	default:
		changed = a.transcript.Apply(targetID, ev)
	}
	// Deltas are saved with the next conversation, citation, error or done
	// event; a cancelled stream is saved by stopLocked.
	if (changed && ev.Kind != stream.EventDelta) || ev.Kind == stream.EventDone {
		a.persistLocked()
	}

	return Update{
		Event:          ev,
		ConversationID: a.conversationID,
		Messages:       a.transcript.Messages(),
	}, true
}

// stopLocked cancels the in-flight session, if any, finalizes its message
// and invalidates its remaining events.
func (a *App) stopLocked() {
	a.seq++
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.cancel = nil
	if a.transcript.Finalize(a.targetID) {
		a.persistLocked()
	}
	a.targetID = ""
}

func (a *App) persistLocked() {
	if _, err := a.history.Upsert(a.conversationID, a.transcript.Messages()); err != nil {
		a.logger.Error("failed to save conversation", "conversation_id", a.conversationID, "error", err)
	}
}

// Cancel stops the in-flight stream. The partial answer is kept.
func (a *App) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// NewChat forgets the active conversation and shows a fresh greeting.
func (a *App) NewChat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.resetLocked()
}

func (a *App) resetLocked() {
	a.conversationID = ""
	a.transcript = transcript.New(transcript.NewChatGreeting(a.now()))
}

// Load makes a stored conversation the active one.
func (a *App) Load(id string) error {
	c, err := a.history.Get(id)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.conversationID = c.ID
	a.transcript = transcript.FromMessages(c.Messages)
	return nil
}

// Delete removes a conversation from history. Deleting the active one
// starts a new chat.
func (a *App) Delete(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == a.conversationID {
		a.stopLocked()
	}
	if err := a.history.Remove(id); err != nil {
		return err
	}
	if id == a.conversationID {
		a.resetLocked()
	}
	return nil
}

func (a *App) Messages() []models.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript.Messages()
}

func (a *App) ConversationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conversationID
}

// Streaming reports whether a session is in flight.
func (a *App) Streaming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// History returns the stored conversations, newest first.
func (a *App) History() []models.StoredConversation {
	return a.history.List()
}

func (a *App) UserID() string {
	return a.userID
}
