package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/timing"
)

// Trial is a leaf step. Activation is where onset triggers and stimuli are
// scheduled; it leaves when Leave is called or its duration elapses.
type Trial struct {
	base
	leaf
	duration   timing.Duration
	onset      *onsetTrigger
	activateFn func(Step, timing.TimePoint) error
	leaveTimer *eventloop.Timer
}

// NewTrial creates a Trial.
func NewTrial(d Dispatcher, name string, opts ...Option) *Trial {
	o := applyOptions(opts)
	t := &Trial{
		duration:   o.duration,
		onset:      o.onset,
		activateFn: o.onActivate,
	}
	t.base.init(t, t, d, name, o)
	return t
}

// Duration returns the auto-leave duration; zero means the trial stays
// activated until Leave is called.
func (t *Trial) Duration() timing.Duration { return t.duration }

func (t *Trial) onActivate(at timing.TimePoint) error {
	if t.onset != nil {
		fireAt := at.Add(t.onset.offset)
		if err := t.onset.marker.ScheduleWrite(t.onset.mask, fireAt, t.onset.hold); err != nil {
			return fmt.Errorf("trial %q onset trigger: %w", t.name, err)
		}
	}
	if t.activateFn != nil {
		if err := t.activateFn(t, at); err != nil {
			return fmt.Errorf("trial %q: %w", t.name, err)
		}
	}
	if t.duration > 0 && t.state == Activated {
		end := at.Add(t.duration)
		t.leaveTimer = t.disp.At(end, func() {
			t.leaveTimer = nil
			if t.state != Activated {
				return
			}
			if err := t.Leave(end); err != nil {
				t.disp.Fail(err)
			}
		})
	}
	return nil
}

func (t *Trial) onLeave(timing.TimePoint) {
	t.leaveTimer.Stop()
	t.leaveTimer = nil
}
