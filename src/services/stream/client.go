// Package stream talks to the chat service: it sends one query per session
// and turns the streamed response into a channel of Events.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"difychat/src/logging"
	"difychat/src/models"
)

const chatMessagesPath = "/v1/chat-messages"

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Request is one user turn.
type Request struct {
	Query          string
	ConversationID string // empty for a new conversation
	User           string
}

type chatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientConfig configures a Client. BaseURL and APIKey are required.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Client issues streaming chat requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// Stream starts a session for req and returns immediately. The caller must
// drain Session.Events until it is closed. Cancelling ctx stops the session
// at the next read.
func (c *Client) Stream(ctx context.Context, req Request) *Session {
	s := &Session{
		events:         make(chan Event, 64),
		conversationID: req.ConversationID,
		client:         c,
		ctx:            ctx,
	}
	go s.run(ctx, req)
	return s
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Inputs:         map[string]any{},
		Query:          req.Query,
		ResponseMode:   "streaming",
		ConversationID: req.ConversationID,
		User:           req.User,
	})
	if err != nil {
		return nil, &models.TransportError{Op: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatMessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, &models.TransportError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &models.TransportError{Op: "send request", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		te := &models.TransportError{
			Op:         "send request",
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			te.Err = errors.New(eb.Message)
		}
		return nil, te
	}
	return resp, nil
}

// Session is one request/response exchange.
type Session struct {
	events chan Event
	client *Client
	ctx    context.Context

	mu             sync.Mutex
	state          State
	conversationID string
}

// Events delivers the session's events in arrival order. EventDone is
// always the last event, after which the channel is closed.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID returns the conversation id currently bound to the session.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// bind records id and reports whether it changed.
func (s *Session) bind(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || id == s.conversationID {
		return false
	}
	s.conversationID = id
	return true
}

// emit delivers ev. Only EventDone waits for a reader after the session
// context is cancelled; other events are dropped then.
func (s *Session) emit(ev Event) {
	s.client.metrics.event(ev.Kind)
	if ev.Kind == EventDone {
		s.events <- ev
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) finish(st State, cause error) {
	s.setState(st)
	s.client.metrics.session(st)
	s.emit(Event{Kind: EventDone, State: st, Err: cause})
}

func (s *Session) fail(err error) {
	s.emit(Event{Kind: EventError, Err: err})
	s.finish(StateFailed, err)
}

func (s *Session) run(ctx context.Context, req Request) {
	defer close(s.events)
	log := s.client.logger

	s.setState(StateSending)
	resp, err := s.client.send(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			s.finish(StateCancelled, nil)
			return
		}
		log.Warn("chat request failed", "error", err)
		s.fail(err)
		return
	}
	defer resp.Body.Close()

	s.setState(StateStreaming)
	var remoteErr error
	dec := NewLineDecoder(resp.Body)
	for dec.Next() {
		if ctx.Err() != nil {
			break
		}
		ev, err := ParseLine(dec.Line())
		if err != nil {
			// Malformed lines are dropped; the rest of the stream is still usable.
			s.client.metrics.parseError()
			log.Warn("dropping malformed stream line", "error", err)
			continue
		}
		switch ev.Kind {
		case EventNone:
		case EventDelta:
			if s.bind(ev.ConversationID) {
				log.Debug("conversation bound", "conversation_id", ev.ConversationID)
				s.emit(Event{Kind: EventConversation, ConversationID: ev.ConversationID})
			}
			s.emit(ev)
		case EventCitations:
			if ev.Usage != nil {
				log.Info("message usage",
					"prompt_tokens", ev.Usage.PromptTokens,
					"completion_tokens", ev.Usage.CompletionTokens,
					"total_tokens", ev.Usage.TotalTokens)
			}
			s.emit(ev)
		case EventError:
			log.Warn("remote error event", "error", ev.Err)
			remoteErr = ev.Err
			s.emit(ev)
		case EventUnknown:
			s.client.metrics.event(ev.Kind)
			log.Debug("ignoring stream event", "payload", ev.Raw)
		}
	}

	if ctx.Err() != nil {
		s.finish(StateCancelled, nil)
		return
	}
	if err := dec.Err(); err != nil {
		log.Warn("stream read failed", "error", err)
		s.fail(&models.TransportError{Op: "read stream", Err: err})
		return
	}
	if remoteErr != nil {
		s.finish(StateFailed, remoteErr)
		return
	}
	s.finish(StateCompleted, nil)
}
