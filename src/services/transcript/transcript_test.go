package transcript

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difychat/src/models"
	"difychat/src/services/stream"
)

func newTranscript() *Transcript {
	t := New(Welcome(time.UnixMilli(1000)))
	t.now = func() time.Time { return time.UnixMilli(2000) }
	return t
}

func TestBeginTurnAppendsUserAndPlaceholder(t *testing.T) {
	tr := newTranscript()
	botID := tr.BeginTurn("hello")

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, WelcomeID, msgs[0].ID)

	assert.Equal(t, models.RoleUser, msgs[1].Role)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.False(t, msgs[1].IsStreaming)

	assert.Equal(t, botID, msgs[2].ID)
	assert.Equal(t, models.RoleAssistant, msgs[2].Role)
	assert.Empty(t, msgs[2].Content)
	assert.True(t, msgs[2].IsStreaming)
	assert.Equal(t, int64(2000), msgs[2].Timestamp)
	assert.NotEqual(t, msgs[1].ID, msgs[2].ID)
}

func TestApplyStreamsIntoPlaceholder(t *testing.T) {
	tr := newTranscript()
	botID := tr.BeginTurn("q")

	assert.True(t, tr.Apply(botID, stream.Event{Kind: stream.EventDelta, Text: "Hi"}))
	assert.True(t, tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{{DocumentName: "doc", Score: 0.9, Content: "x"}}}))
	assert.True(t, tr.Apply(botID, stream.Event{Kind: stream.EventDone, State: stream.StateCompleted}))

	msg, ok := tr.Get(botID)
	require.True(t, ok)
	assert.Equal(t, "Hi", msg.Content)
	require.Len(t, msg.Citations, 1)
	assert.Equal(t, "doc", msg.Citations[0].DocumentName)
	assert.False(t, msg.IsStreaming)

	_, streaming := tr.Streaming()
	assert.False(t, streaming)
}

func TestApplyCitationsReplaceWholesale(t *testing.T) {
	tr := newTranscript()
	botID := tr.BeginTurn("q")

	tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{{DocumentName: "a"}, {DocumentName: "b"}}})
	tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{{DocumentName: "c"}}})

	msg, _ := tr.Get(botID)
	assert.Equal(t, []models.Citation{{DocumentName: "c"}}, msg.Citations)
}

func TestApplyErrorAppendsSuffix(t *testing.T) {
	tr := newTranscript()
	botID := tr.BeginTurn("q")
	tr.Apply(botID, stream.Event{Kind: stream.EventDelta, Text: "partial"})

	assert.True(t, tr.Apply(botID, stream.Event{Kind: stream.EventError, Err: errors.New("API Error: 500 Internal Server Error")}))
	assert.False(t, tr.Apply(botID, stream.Event{Kind: stream.EventDone, State: stream.StateFailed}))

	msg, _ := tr.Get(botID)
	assert.Equal(t, "partial\n\n[Error: API Error: 500 Internal Server Error]", msg.Content)
	assert.False(t, msg.IsStreaming)

	// Content is frozen once streaming ends.
	assert.False(t, tr.Apply(botID, stream.Event{Kind: stream.EventDelta, Text: "late"}))
	msg, _ = tr.Get(botID)
	assert.NotContains(t, msg.Content, "late")
}

func TestApplyUnknownTargetIsNoop(t *testing.T) {
	tr := newTranscript()
	tr.BeginTurn("q")
	before := tr.Messages()

	assert.False(t, tr.Apply("missing", stream.Event{Kind: stream.EventDelta, Text: "x"}))
	assert.Equal(t, before, tr.Messages())
}

func TestApplyNeverTouchesOtherMessages(t *testing.T) {
	tr := newTranscript()
	first := tr.BeginTurn("one")
	tr.Apply(first, stream.Event{Kind: stream.EventDelta, Text: "answer one"})
	tr.Apply(first, stream.Event{Kind: stream.EventDone})

	second := tr.BeginTurn("two")
	tr.Apply(second, stream.Event{Kind: stream.EventDelta, Text: "answer two"})

	msgs := tr.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "answer one", msgs[2].Content)
	assert.Equal(t, "two", msgs[3].Content)
	assert.Equal(t, "answer two", msgs[4].Content)

	// User messages cannot be targeted.
	assert.False(t, tr.Apply(msgs[3].ID, stream.Event{Kind: stream.EventDelta, Text: "x"}))
}

func TestBeginTurnFinalizesPreviousStream(t *testing.T) {
	tr := newTranscript()
	first := tr.BeginTurn("one")
	second := tr.BeginTurn("two")

	id, ok := tr.Streaming()
	require.True(t, ok)
	assert.Equal(t, second, id)

	msg, _ := tr.Get(first)
	assert.False(t, msg.IsStreaming)
}

func TestMessagesReturnsCopy(t *testing.T) {
	tr := newTranscript()
	botID := tr.BeginTurn("q")
	tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{{DocumentName: "a"}}})

	msgs := tr.Messages()
	msgs[2].Content = "mutated"
	msgs[2].Citations[0].DocumentName = "mutated"

	msg, _ := tr.Get(botID)
	assert.Empty(t, msg.Content)
	assert.Equal(t, "a", msg.Citations[0].DocumentName)
}

func TestFromMessagesClearsStaleStreaming(t *testing.T) {
	tr := FromMessages([]models.Message{
		{ID: "u1", Role: models.RoleUser, Content: "hi"},
		{ID: "a1", Role: models.RoleAssistant, Content: "hal", IsStreaming: true},
	})
	_, streaming := tr.Streaming()
	assert.False(t, streaming)

	first, ok := tr.FirstUserMessage()
	require.True(t, ok)
	assert.Equal(t, "hi", first.Content)
}

func TestApplyUsageOnlyKeepsCitations(t *testing.T) {
	tr := New(Welcome(time.Now()))
	botID := tr.BeginTurn("q")
	tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{{DocumentName: "a"}}})

	assert.False(t, tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Usage: &models.Usage{TotalTokens: 3}}))
	msg, _ := tr.Get(botID)
	assert.Equal(t, []models.Citation{{DocumentName: "a"}}, msg.Citations)

	assert.True(t, tr.Apply(botID, stream.Event{Kind: stream.EventCitations, Citations: []models.Citation{}}))
	msg, _ = tr.Get(botID)
	assert.NotNil(t, msg.Citations)
	assert.Empty(t, msg.Citations)
}
