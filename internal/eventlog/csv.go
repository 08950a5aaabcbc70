package eventlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aelexs/psykit/pkg/record"
)

var csvHeader = []string{"seq", "kind", "label", "event", "intended_us", "actual_us", "finish_us", "error"}

// CSV writes one row per record with intended and actual times side by side.
type CSV struct {
	dst         io.Writer
	w           *csv.Writer
	wroteHeader bool
}

// NewCSV creates a CSV writer on w. Closing it closes w if w is an io.Closer.
func NewCSV(w io.Writer) *CSV {
	return &CSV{dst: w, w: csv.NewWriter(w)}
}

// Write implements Writer.
func (c *CSV) Write(env *record.Envelope) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	row, err := csvRow(env)
	if err != nil {
		return err
	}
	return c.w.Write(row)
}

func csvRow(env *record.Envelope) ([]string, error) {
	seq := strconv.FormatUint(env.Seq, 10)
	us := func(v int64) string { return strconv.FormatInt(v, 10) }

	switch env.Kind {
	case record.KindSession:
		var r record.SessionRecord
		if err := env.ParsePayload(&r); err != nil {
			return nil, err
		}
		return []string{seq, string(env.Kind), r.Experiment, r.Phase, "", "", "", r.Error}, nil
	case record.KindStep:
		var r record.StepRecord
		if err := env.ParsePayload(&r); err != nil {
			return nil, err
		}
		event := r.Event
		if r.Index != nil {
			event = fmt.Sprintf("%s[%d]", r.Event, *r.Index)
		}
		return []string{seq, string(env.Kind), r.Path, event, us(r.AtUS), us(r.AtUS), "", ""}, nil
	case record.KindTrigger:
		var r record.TriggerRecord
		if err := env.ParsePayload(&r); err != nil {
			return nil, err
		}
		label := fmt.Sprintf("0x%02x", r.Mask)
		return []string{seq, string(env.Kind), label, "trigger", us(r.FireAtUS), us(r.StartUS), us(r.FinishUS), r.Error}, nil
	}
	return nil, fmt.Errorf("csv: unknown record kind %q", env.Kind)
}

// Close implements Writer.
func (c *CSV) Close() error {
	c.w.Flush()
	return errors.Join(c.w.Error(), closeIfCloser(c.dst))
}
