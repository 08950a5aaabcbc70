// Package eventlog writes the ordered record of a session: every step
// transition and every trigger cycle with its intended and actual times.
package eventlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/pkg/record"
)

// Writer persists envelopes in order.
type Writer interface {
	Write(env *record.Envelope) error
	Close() error
}

// Log numbers records and hands them to a Writer.
type Log struct {
	mu        sync.Mutex
	sessionID string
	seq       uint64
	w         Writer
}

// New creates a Log for sessionID writing to w.
func New(sessionID string, w Writer) *Log {
	return &Log{sessionID: sessionID, w: w}
}

// Session appends a session record.
func (l *Log) Session(r record.SessionRecord) error {
	return l.append(record.KindSession, r)
}

// Step appends a step record.
func (l *Log) Step(r record.StepRecord) error {
	return l.append(record.KindStep, r)
}

// Trigger appends a trigger record.
func (l *Log) Trigger(r record.TriggerRecord) error {
	return l.append(record.KindTrigger, r)
}

// Len returns the number of records written.
func (l *Log) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *Log) append(kind record.Kind, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	env, err := record.NewEnvelope(kind, l.sessionID, l.seq, payload)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", kind, err)
	}
	if err := l.w.Write(env); err != nil {
		return fmt.Errorf("write %s record %d: %w", kind, l.seq, err)
	}
	l.seq++
	return nil
}

// Close closes the underlying writer.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Close()
}

// NewWriter returns the writer for format on w.
func NewWriter(w io.Writer, format domain.LogFormat) (Writer, error) {
	switch format {
	case domain.LogFormatJSONL:
		return NewJSONLines(w), nil
	case domain.LogFormatCSV:
		return NewCSV(w), nil
	}
	return nil, fmt.Errorf("log format %q: %w", format, domain.ErrInvalidConfig)
}

// Create opens path for writing in format. The path "-" writes to stdout.
func Create(path string, format domain.LogFormat) (Writer, error) {
	if !domain.IsValidLogFormat(format) {
		return nil, fmt.Errorf("log format %q: %w", format, domain.ErrInvalidConfig)
	}
	if path == "-" {
		return NewWriter(nopCloser{os.Stdout}, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	return NewWriter(f, format)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// closeIfCloser closes w if it implements io.Closer.
func closeIfCloser(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
