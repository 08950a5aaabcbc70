package step

import "github.com/aelexs/psykit/internal/timing"

// Marker schedules a digital trigger pulse. *trigger.Trigger implements it.
type Marker interface {
	ScheduleWrite(mask uint8, fireAt timing.TimePoint, holdFor timing.Duration) error
}

type onsetTrigger struct {
	marker Marker
	mask   uint8
	offset timing.Duration
	hold   timing.Duration
}

type options struct {
	manual     bool
	duration   timing.Duration
	onset      *onsetTrigger
	onActivate func(s Step, at timing.TimePoint) error
	factory    func(index int64) (Step, error)
}

// Option configures a step. Options that do not apply to a variant are
// ignored by it.
type Option func(*options)

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ManualActivation stops Enter from posting the activation; the caller
// activates the step itself, typically at the first frame flip.
func ManualActivation() Option {
	return func(o *options) { o.manual = true }
}

// WithDuration makes a Trial leave by itself d after activation.
func WithDuration(d timing.Duration) Option {
	return func(o *options) { o.duration = d }
}

// WithOnsetTrigger makes a Trial schedule a trigger write of mask at
// activation + offset, held for hold.
func WithOnsetTrigger(m Marker, mask uint8, offset, hold timing.Duration) Option {
	return func(o *options) {
		o.onset = &onsetTrigger{marker: m, mask: mask, offset: offset, hold: hold}
	}
}

// OnActivate registers fn to run when a Trial or SideStep activates. For a
// Trial this is where stimuli are scheduled; an error aborts the run.
func OnActivate(fn func(s Step, at timing.TimePoint) error) Option {
	return func(o *options) { o.onActivate = fn }
}

// WithChildFactory makes a Loop build a fresh child for every iteration.
func WithChildFactory(fn func(index int64) (Step, error)) Option {
	return func(o *options) { o.factory = fn }
}
