package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"difychat/src/models"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	defaultRemoteError = "Unknown error from Dify"
)

// EventKind discriminates Event.
type EventKind int

const (
	// EventNone means the line carried nothing to act on.
	EventNone EventKind = iota
	// EventDelta carries a piece of answer text.
	EventDelta
	// EventCitations carries the retrieval references for the answer.
	EventCitations
	// EventError carries a remote or transport failure.
	EventError
	// EventUnknown is a well-formed payload with an unrecognized event name.
	EventUnknown
	// EventConversation announces the conversation id the service bound
	// this session to. Emitted by Session, never by ParseLine.
	EventConversation
	// EventDone is the last event of every session.
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventDelta:
		return "delta"
	case EventCitations:
		return "citations"
	case EventError:
		return "error"
	case EventUnknown:
		return "unknown"
	case EventConversation:
		return "conversation"
	case EventDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one semantic unit from the response stream.
type Event struct {
	Kind EventKind

	Text           string // EventDelta
	MessageID      string // EventDelta, remote message id
	ConversationID string // EventDelta, EventConversation

	Citations []models.Citation // EventCitations, possibly empty
	Usage     *models.Usage     // EventCitations, when reported

	Err error // EventError: *models.RemoteError or *models.TransportError; EventDone: cause of failure

	State State  // EventDone
	Raw   string // EventUnknown
}

// ParseError reports a data line whose payload is not valid JSON. Streams
// tolerate these: the line is dropped and reading continues.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse stream line: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type envelope struct {
	Event          string    `json:"event"`
	Answer         string    `json:"answer"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Metadata       *metadata `json:"metadata"`
	Message        string    `json:"message"`
	Code           string    `json:"code"`
	Status         int       `json:"status"`
}

type metadata struct {
	RetrieverResources *[]models.Citation `json:"retriever_resources"`
	Usage              *models.Usage      `json:"usage"`
}

// ParseLine turns one stream line into an Event. Lines without the data
// prefix, the [DONE] sentinel, empty answers and end-of-message lines
// without retrieval metadata all yield EventNone. A malformed payload yields
// EventNone and a *ParseError.
func ParseLine(line string) (Event, error) {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok || payload == doneSentinel {
		return Event{}, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		// A field of an unexpected type does not spoil the rest of a
		// recognizable event; the decoder still fills the other fields.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || env.Event == "" {
			return Event{}, &ParseError{Line: line, Err: err}
		}
	}

	switch env.Event {
	case "message", "agent_message":
		if env.Answer == "" {
			return Event{}, nil
		}
		return Event{
			Kind:           EventDelta,
			Text:           env.Answer,
			MessageID:      env.MessageID,
			ConversationID: env.ConversationID,
		}, nil
	case "message_end":
		if env.Metadata == nil {
			return Event{}, nil
		}
		if env.Metadata.RetrieverResources == nil {
			if env.Metadata.Usage == nil {
				return Event{}, nil
			}
			// usage only: Citations stays nil so the transcript keeps its sources
			return Event{Kind: EventCitations, Usage: env.Metadata.Usage}, nil
		}
		citations := *env.Metadata.RetrieverResources
		if citations == nil {
			citations = []models.Citation{}
		}
		return Event{Kind: EventCitations, Citations: citations, Usage: env.Metadata.Usage}, nil
	case "error":
		msg := env.Message
		if msg == "" {
			msg = defaultRemoteError
		}
		return Event{
			Kind: EventError,
			Err:  &models.RemoteError{Code: env.Code, Status: env.Status, Message: msg},
		}, nil
	default:
		return Event{Kind: EventUnknown, Raw: payload}, nil
	}
}
