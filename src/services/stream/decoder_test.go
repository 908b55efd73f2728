package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader hands out its input in fixed-size pieces.
type chunkReader struct {
	data []byte
	size int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.size
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func readLines(t *testing.T, r io.Reader) []string {
	t.Helper()
	dec := NewLineDecoder(r)
	var lines []string
	for dec.Next() {
		lines = append(lines, dec.Line())
	}
	require.NoError(t, dec.Err())
	return lines
}

func parseAll(t *testing.T, r io.Reader) []Event {
	t.Helper()
	dec := NewLineDecoder(r)
	var events []Event
	for dec.Next() {
		ev, _ := ParseLine(dec.Line())
		if ev.Kind != EventNone {
			events = append(events, ev)
		}
	}
	require.NoError(t, dec.Err())
	return events
}

const sampleStream = "data: {\"event\":\"message\",\"answer\":\"Hé\",\"conversation_id\":\"c1\",\"message_id\":\"m1\"}\n" +
	"\n" +
	"event: ping\n" +
	"data: {\"event\":\"agent_message\",\"answer\":\"llo 世界\",\"conversation_id\":\"c1\"}\n" +
	"data: {not json}\n" +
	"data: {\"event\":\"message_end\",\"metadata\":{\"retriever_resources\":[{\"document_name\":\"doc\",\"score\":0.9,\"content\":\"x\"}]}}\n" +
	"data: [DONE]\n"

func TestDecoderChunkBoundaryInvariant(t *testing.T) {
	want := parseAll(t, strings.NewReader(sampleStream))
	require.Len(t, want, 3)

	for size := 1; size <= len(sampleStream); size++ {
		got := parseAll(t, &chunkReader{data: []byte(sampleStream), size: size})
		require.Equal(t, want, got, "chunk size %d", size)
	}

	got := parseAll(t, iotest.OneByteReader(strings.NewReader(sampleStream)))
	assert.Equal(t, want, got)
}

func TestDecoderDropsUnterminatedTail(t *testing.T) {
	lines := readLines(t, strings.NewReader("first\nsecond\npartial"))
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestDecoderTrimsCarriageReturn(t *testing.T) {
	lines := readLines(t, strings.NewReader("data: [DONE]\r\n\r\n"))
	assert.Equal(t, []string{"data: [DONE]", ""}, lines)
}

func TestDecoderReplacesInvalidUTF8(t *testing.T) {
	lines := readLines(t, strings.NewReader("ok\xff\xfe!\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "ok��!", lines[0])
}

func TestDecoderReportsReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("one\ntw"), iotest.ErrReader(boom))

	dec := NewLineDecoder(r)
	require.True(t, dec.Next())
	assert.Equal(t, "one", dec.Line())
	assert.False(t, dec.Next())
	assert.ErrorIs(t, dec.Err(), boom)
	assert.False(t, dec.Next())
}
