package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difychat/src/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewClient(ClientConfig{BaseURL: srv.URL + "/", APIKey: "app-test", Metrics: metrics}), metrics
}

func writeLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, l := range lines {
		fmt.Fprint(w, l+"\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func collect(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("session did not finish")
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestStreamRequestShape(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat-messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer app-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		writeLines(w, "data: [DONE]")
	})

	events := collect(t, client.Stream(context.Background(), Request{Query: "hello", User: "web-user-42"}))
	require.Equal(t, []EventKind{EventDone}, kinds(events))
	assert.Equal(t, StateCompleted, events[0].State)

	assert.Equal(t, map[string]any{}, got["inputs"])
	assert.Equal(t, "hello", got["query"])
	assert.Equal(t, "streaming", got["response_mode"])
	assert.Equal(t, "web-user-42", got["user"])
	_, hasConversation := got["conversation_id"]
	assert.False(t, hasConversation, "conversation_id must be omitted for a new chat")
}

func TestStreamSendsKnownConversation(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeLines(w, `data: {"event":"message","answer":"ok","conversation_id":"c9"}`)
	})

	events := collect(t, client.Stream(context.Background(), Request{Query: "q", ConversationID: "c9", User: "u"}))
	assert.Equal(t, "c9", got["conversation_id"])
	// Already bound to c9, so no binding event.
	assert.Equal(t, []EventKind{EventDelta, EventDone}, kinds(events))
}

func TestStreamContentAndCitations(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w,
			`data: {"event":"message","answer":"Hi","conversation_id":"c1","message_id":"m1"}`,
			`data: {"event":"message","answer":"!","conversation_id":"c1","message_id":"m1"}`,
			`data: {"event":"message_end","metadata":{"retriever_resources":[{"document_name":"doc","score":0.9,"content":"x"}]}}`,
			`data: [DONE]`,
		)
	})

	s := client.Stream(context.Background(), Request{Query: "q", User: "u"})
	events := collect(t, s)
	require.Equal(t, []EventKind{EventConversation, EventDelta, EventDelta, EventCitations, EventDone}, kinds(events))

	assert.Equal(t, "c1", events[0].ConversationID)
	assert.Equal(t, "Hi", events[1].Text)
	assert.Equal(t, "!", events[2].Text)
	require.Len(t, events[3].Citations, 1)
	assert.Equal(t, "doc", events[3].Citations[0].DocumentName)
	assert.Equal(t, StateCompleted, events[4].State)
	assert.NoError(t, events[4].Err)

	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, "c1", s.ConversationID())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessions.WithLabelValues("completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.events.WithLabelValues("delta")))
}

func TestStreamTransportFailure(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"Access token is invalid","status":401}`))
	})

	s := client.Stream(context.Background(), Request{Query: "q", User: "u"})
	events := collect(t, s)

	errorCount, doneCount, deltaCount := 0, 0, 0
	for _, ev := range events {
		switch ev.Kind {
		case EventError:
			errorCount++
		case EventDone:
			doneCount++
		case EventDelta:
			deltaCount++
		}
	}
	assert.Equal(t, 1, errorCount)
	assert.Equal(t, 1, doneCount)
	assert.Equal(t, 0, deltaCount)
	assert.Equal(t, EventDone, events[len(events)-1].Kind)

	var te *models.TransportError
	require.ErrorAs(t, events[0].Err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Equal(t, "API Error: 401 Unauthorized: Access token is invalid", te.Error())
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessions.WithLabelValues("failed")))
}

func TestStreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: url, APIKey: "k"})
	events := collect(t, client.Stream(context.Background(), Request{Query: "q", User: "u"}))
	require.Equal(t, []EventKind{EventError, EventDone}, kinds(events))
	assert.Equal(t, StateFailed, events[1].State)
}

func TestStreamRemoteErrorEvent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w,
			`data: {"event":"message","answer":"partial","conversation_id":"c1"}`,
			`data: {"event":"error","message":"quota exceeded"}`,
			`data: {"event":"message","answer":" more","conversation_id":"c1"}`,
		)
	})

	events := collect(t, client.Stream(context.Background(), Request{Query: "q", User: "u"}))
	require.Equal(t, []EventKind{EventConversation, EventDelta, EventError, EventDelta, EventDone}, kinds(events))
	assert.EqualError(t, events[2].Err, "quota exceeded")
	assert.Equal(t, StateFailed, events[4].State)
	assert.EqualError(t, events[4].Err, "quota exceeded")
}

func TestStreamToleratesMalformedLines(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w,
			`data: {"event":"message","answer":"a","conversation_id":"c1"}`,
			`data: {"event":`,
			`data: {"event":"message","answer":"b","conversation_id":"c1"}`,
		)
	})

	events := collect(t, client.Stream(context.Background(), Request{Query: "q", User: "u"}))
	require.Equal(t, []EventKind{EventConversation, EventDelta, EventDelta, EventDone}, kinds(events))
	assert.Equal(t, StateCompleted, events[3].State)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.parseErrors))
}

func TestStreamConversationRebind(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w,
			`data: {"event":"message","answer":"a","conversation_id":"c1"}`,
			`data: {"event":"message","answer":"b","conversation_id":"c1"}`,
			`data: {"event":"message","answer":"c","conversation_id":"c2"}`,
		)
	})

	events := collect(t, client.Stream(context.Background(), Request{Query: "q", User: "u"}))
	require.Equal(t, []EventKind{EventConversation, EventDelta, EventDelta, EventConversation, EventDelta, EventDone}, kinds(events))
	assert.Equal(t, "c2", events[3].ConversationID)
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLines(w, `data: {"event":"message","answer":"first","conversation_id":"c1"}`)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := client.Stream(ctx, Request{Query: "q", User: "u"})

	var events []Event
	for ev := range s.Events() {
		events = append(events, ev)
		if ev.Kind == EventDelta {
			cancel()
		}
	}

	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Kind)
	assert.Equal(t, StateCancelled, last.State)
	for _, ev := range events {
		assert.NotEqual(t, EventError, ev.Kind)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessions.WithLabelValues("cancelled")))
}

func TestStreamCancellationWithoutReader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lines := make([]string, 200)
		for i := range lines {
			lines[i] = fmt.Sprintf(`data: {"event":"message","answer":"%d","conversation_id":"c1"}`, i)
		}
		writeLines(w, lines...)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := client.Stream(ctx, Request{Query: "q", User: "u"})

	// nobody reads until the buffer is full and the session is cancelled
	require.Eventually(t, func() bool { return len(s.events) == cap(s.events) }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return s.State() == StateCancelled }, 5*time.Second, 10*time.Millisecond)

	events := collect(t, s)
	last := events[len(events)-1]
	assert.Equal(t, EventDone, last.Kind)
	assert.Equal(t, StateCancelled, last.State)
}

func TestStateTerminal(t *testing.T) {
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateStreaming.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.Equal(t, "streaming", StateStreaming.String())
}
