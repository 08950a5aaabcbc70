// Package step implements the hierarchical step state machine that sequences
// an experiment.
//
// Every step moves Idle → Entered → Activated → Left. Entering posts the
// activation to the Dispatcher; leaving posts a notification to the parent,
// which decides what runs next. A Loop re-enters its child until its
// condition fails, SteppingStones walks an ordered list of children, and a
// Trial is a leaf where stimuli and triggers are scheduled.
//
// Steps are owned by the event loop goroutine and are not safe for
// concurrent use.
package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/timing"
)

// State is the lifecycle state of a step.
type State int

const (
	Idle State = iota
	Entered
	Activated
	Left
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Entered:
		return "entered"
	case Activated:
		return "activated"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind identifies a lifecycle event.
type EventKind int

const (
	EventEnter EventKind = iota
	EventActivate
	EventLeave
	EventIteration
)

func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventActivate:
		return "activate"
	case EventLeave:
		return "leave"
	case EventIteration:
		return "iteration"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to listeners on every transition. Index is only set
// for EventIteration.
type Event struct {
	Kind  EventKind
	Step  Step
	At    timing.TimePoint
	Index int64
}

// Listener receives step events synchronously on the event loop goroutine.
type Listener func(Event)

// Dispatcher runs deferred step work. *eventloop.Loop implements it.
type Dispatcher interface {
	Post(fn func())
	At(at timing.TimePoint, fn func()) *eventloop.Timer
	Fail(err error)
}

var _ Dispatcher = (*eventloop.Loop)(nil)

// Step is one node of an experiment tree. The set of implementations is
// closed: Trial, Loop, SteppingStones and SideStep.
type Step interface {
	Name() string
	State() State
	// Parent returns the enclosing step, or nil at the root.
	Parent() Step

	// Enter moves an Idle or Left step to Entered at the given instant and,
	// unless the step activates manually, posts its activation.
	Enter(at timing.TimePoint) error
	// Activate moves an Entered step to Activated.
	Activate(at timing.TimePoint) error
	// Leave moves an Activated step to Left and notifies the parent.
	Leave(at timing.TimePoint) error

	// EnteredAt, ActivatedAt and LeftAt return the instant of the most
	// recent transition, or the zero TimePoint.
	EnteredAt() timing.TimePoint
	ActivatedAt() timing.TimePoint
	LeftAt() timing.TimePoint

	// Subscribe registers l for this step's events and returns a function
	// that removes it.
	Subscribe(l Listener) (unsubscribe func())

	core() *base
}

// variant is implemented by each step type to customise transitions.
type variant interface {
	// beforeEnter may reject entering; the state is unchanged on error.
	beforeEnter(at timing.TimePoint) error
	onActivate(at timing.TimePoint) error
	onLeave(at timing.TimePoint)
	childLeft(child Step, at timing.TimePoint)
}

type listenerEntry struct {
	fn Listener
}

// base carries the state shared by every step variant.
type base struct {
	self      Step
	impl      variant
	name      string
	state     State
	parent    Step
	disp      Dispatcher
	manual    bool
	listeners []*listenerEntry

	enteredAt   timing.TimePoint
	activatedAt timing.TimePoint
	leftAt      timing.TimePoint
}

func (b *base) init(self Step, impl variant, d Dispatcher, name string, o *options) {
	b.self = self
	b.impl = impl
	b.disp = d
	b.name = name
	b.manual = o.manual
}

func (b *base) core() *base { return b }

// Name returns the step's name.
func (b *base) Name() string { return b.name }

// State returns the current lifecycle state.
func (b *base) State() State { return b.state }

// Parent returns the enclosing step, or nil.
func (b *base) Parent() Step { return b.parent }

func (b *base) EnteredAt() timing.TimePoint   { return b.enteredAt }
func (b *base) ActivatedAt() timing.TimePoint { return b.activatedAt }
func (b *base) LeftAt() timing.TimePoint      { return b.leftAt }

// Subscribe registers l for this step's events.
func (b *base) Subscribe(l Listener) func() {
	e := &listenerEntry{fn: l}
	b.listeners = append(b.listeners, e)
	return func() {
		for i, cur := range b.listeners {
			if cur == e {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *base) emit(ev Event) {
	ev.Step = b.self
	snapshot := append([]*listenerEntry(nil), b.listeners...)
	for _, e := range snapshot {
		e.fn(ev)
	}
}

func (b *base) transitionError(op string) error {
	return fmt.Errorf("%s %q while %s: %w", op, b.name, b.state, domain.ErrInvalidTransition)
}

// Enter implements Step.
func (b *base) Enter(at timing.TimePoint) error {
	if b.state != Idle && b.state != Left {
		return b.transitionError("enter")
	}
	if err := b.impl.beforeEnter(at); err != nil {
		return err
	}
	b.state = Entered
	b.enteredAt = at
	b.emit(Event{Kind: EventEnter, At: at})

	if !b.manual {
		b.disp.Post(func() {
			if b.state != Entered {
				return
			}
			if err := b.Activate(at); err != nil {
				b.disp.Fail(err)
			}
		})
	}
	return nil
}

// Activate implements Step.
func (b *base) Activate(at timing.TimePoint) error {
	if b.state != Entered {
		return b.transitionError("activate")
	}
	b.state = Activated
	b.activatedAt = at
	b.emit(Event{Kind: EventActivate, At: at})
	return b.impl.onActivate(at)
}

// Leave implements Step.
func (b *base) Leave(at timing.TimePoint) error {
	if b.state != Activated {
		return b.transitionError("leave")
	}
	b.state = Left
	b.leftAt = at
	b.impl.onLeave(at)
	b.emit(Event{Kind: EventLeave, At: at})

	if parent := b.parent; parent != nil {
		self := b.self
		b.disp.Post(func() {
			parent.core().impl.childLeft(self, at)
		})
	}
	return nil
}

// adopt makes parent the parent of child.
func adopt(parent, child Step) error {
	cb := child.core()
	if cb.parent != nil && cb.parent != parent {
		return fmt.Errorf("adopt %q into %q: %w", cb.name, parent.Name(), domain.ErrStepHasParent)
	}
	if child == parent {
		return fmt.Errorf("adopt %q into itself: %w", cb.name, domain.ErrStepHasParent)
	}
	cb.parent = parent
	return nil
}

// release detaches child from its parent.
func release(child Step) {
	if child != nil {
		child.core().parent = nil
	}
}

// leaf is the variant behaviour of steps without children.
type leaf struct{}

func (leaf) beforeEnter(timing.TimePoint) error { return nil }
func (leaf) childLeft(Step, timing.TimePoint)   {}
