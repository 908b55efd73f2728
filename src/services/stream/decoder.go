package stream

import (
	"bufio"
	"bytes"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// LineDecoder splits a byte stream into '\n'-terminated text lines. A
// partial line is held across reads until its terminator arrives; an
// unterminated fragment left at EOF is dropped. Invalid UTF-8 is replaced
// with U+FFFD rather than reported.
type LineDecoder struct {
	r    *bufio.Reader
	utf8 *encoding.Decoder
	line string
	err  error
}

// NewLineDecoder wraps r.
func NewLineDecoder(r io.Reader) *LineDecoder {
	return &LineDecoder{
		r:    bufio.NewReader(r),
		utf8: unicode.UTF8.NewDecoder(),
	}
}

// Next advances to the next complete line. It returns false at EOF or on a
// read error; Err distinguishes the two.
func (d *LineDecoder) Next() bool {
	if d.err != nil {
		return false
	}
	raw, err := d.r.ReadBytes('\n')
	if err != nil {
		if err != io.EOF {
			d.err = err
		}
		return false
	}
	raw = bytes.TrimSuffix(raw[:len(raw)-1], []byte{'\r'})
	d.line = d.decode(raw)
	return true
}

// Line returns the line produced by the last successful Next, without its
// terminator.
func (d *LineDecoder) Line() string {
	return d.line
}

// Err returns the first non-EOF read error.
func (d *LineDecoder) Err() error {
	return d.err
}

func (d *LineDecoder) decode(raw []byte) string {
	out, err := d.utf8.Bytes(raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("�")))
	}
	return string(out)
}
