package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/aelexs/psykit/pkg/record"
)

// JSONLines writes one JSON envelope per line.
type JSONLines struct {
	dst io.Writer
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONLines creates a JSON lines writer on w. Closing it closes w if w is
// an io.Closer.
func NewJSONLines(w io.Writer) *JSONLines {
	buf := bufio.NewWriter(w)
	return &JSONLines{dst: w, buf: buf, enc: json.NewEncoder(buf)}
}

// Write implements Writer.
func (j *JSONLines) Write(env *record.Envelope) error {
	return j.enc.Encode(env)
}

// Close implements Writer.
func (j *JSONLines) Close() error {
	return errors.Join(j.buf.Flush(), closeIfCloser(j.dst))
}
