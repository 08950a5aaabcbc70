package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/timing"
)

// Condition compares the loop index with the stop value before every
// iteration.
type Condition int

const (
	Less Condition = iota
	LessOrEqual
	Equal
	GreaterOrEqual
	Greater
	NotEqual
)

var conditionNames = map[Condition]string{
	Less:           "<",
	LessOrEqual:    "<=",
	Equal:          "==",
	GreaterOrEqual: ">=",
	Greater:        ">",
	NotEqual:       "!=",
}

func (c Condition) String() string {
	if s, ok := conditionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Condition(%d)", int(c))
}

// ParseCondition accepts the operator or a spelled-out name such as
// "less_equal".
func ParseCondition(s string) (Condition, error) {
	switch s {
	case "<", "less", "lt":
		return Less, nil
	case "<=", "less_equal", "le":
		return LessOrEqual, nil
	case "==", "equal", "eq":
		return Equal, nil
	case ">=", "greater_equal", "ge":
		return GreaterOrEqual, nil
	case ">", "greater", "gt":
		return Greater, nil
	case "!=", "not_equal", "ne":
		return NotEqual, nil
	}
	return 0, fmt.Errorf("condition %q: %w", s, domain.ErrLoopConfig)
}

// Holds reports whether another iteration runs at index.
func (c Condition) Holds(index, stop int64) bool {
	switch c {
	case Less:
		return index < stop
	case LessOrEqual:
		return index <= stop
	case Equal:
		return index == stop
	case GreaterOrEqual:
		return index >= stop
	case Greater:
		return index > stop
	case NotEqual:
		return index != stop
	}
	return false
}

// LoopConfig describes a counted loop: index runs from Start by Step while
// Condition(index, Stop) holds.
type LoopConfig struct {
	Start     int64
	Stop      int64
	Step      int64
	Condition Condition
}

// Validate rejects loops that would never terminate: the condition holds at
// Start and Step does not move the index towards failing it.
func (c LoopConfig) Validate() error {
	if _, ok := conditionNames[c.Condition]; !ok {
		return fmt.Errorf("loop condition %d: %w", int(c.Condition), domain.ErrLoopConfig)
	}
	if !c.Condition.Holds(c.Start, c.Stop) {
		return nil
	}

	bad := false
	switch c.Condition {
	case Less, LessOrEqual:
		bad = c.Step <= 0
	case Greater, GreaterOrEqual:
		bad = c.Step >= 0
	case Equal:
		bad = c.Step == 0
	case NotEqual:
		dist := c.Stop - c.Start
		bad = c.Step == 0 || dist%c.Step != 0 || dist/c.Step < 0
	}
	if bad {
		return fmt.Errorf("loop %d %s %d step %d: %w",
			c.Start, c.Condition, c.Stop, c.Step, domain.ErrLoopConfig)
	}
	return nil
}

// Loop repeats its child while its condition holds.
type Loop struct {
	base
	cfg     LoopConfig
	index   int64
	child   Step
	factory func(index int64) (Step, error)
}

// NewLoop creates a Loop. The configuration is checked when the loop is
// entered; use LoopConfig.Validate to check it earlier.
func NewLoop(d Dispatcher, name string, cfg LoopConfig, opts ...Option) *Loop {
	o := applyOptions(opts)
	l := &Loop{cfg: cfg, index: cfg.Start, factory: o.factory}
	l.base.init(l, l, d, name, o)
	return l
}

// Config returns the loop configuration.
func (l *Loop) Config() LoopConfig { return l.cfg }

// Index returns the current iteration index.
func (l *Loop) Index() int64 { return l.index }

// SetConfig replaces the configuration. An Idle or Left loop checks it when
// next entered. A running loop checks it from the current index, so the
// remaining iterations still terminate; on error nothing changes.
func (l *Loop) SetConfig(cfg LoopConfig) error {
	if l.running() {
		if err := cfg.from(l.index).Validate(); err != nil {
			return fmt.Errorf("configure loop %q: %w", l.name, err)
		}
	}
	l.cfg = cfg
	if l.state == Idle {
		l.index = cfg.Start
	}
	return nil
}

// SetStop changes the stop value, for example from an adaptive staircase.
func (l *Loop) SetStop(stop int64) error {
	cfg := l.cfg
	cfg.Stop = stop
	return l.SetConfig(cfg)
}

// SetStep changes the increment applied after every iteration.
func (l *Loop) SetStep(step int64) error {
	cfg := l.cfg
	cfg.Step = step
	return l.SetConfig(cfg)
}

// SetCondition changes the condition evaluated before every iteration.
func (l *Loop) SetCondition(c Condition) error {
	cfg := l.cfg
	cfg.Condition = c
	return l.SetConfig(cfg)
}

// SetIndex moves the loop to index. In a running loop the next iteration
// advances from it; entering the loop resets it to Start.
func (l *Loop) SetIndex(index int64) error {
	if l.running() {
		if err := l.cfg.from(index).Validate(); err != nil {
			return fmt.Errorf("set index of loop %q: %w", l.name, err)
		}
	}
	l.index = index
	return nil
}

func (l *Loop) running() bool {
	return l.state == Entered || l.state == Activated
}

// from returns c starting at index.
func (c LoopConfig) from(index int64) LoopConfig {
	c.Start = index
	return c
}

// Child returns the child entered on the current iteration.
func (l *Loop) Child() Step { return l.child }

// SetChild makes child the step entered on every iteration. A child already
// owned by another step is rejected with domain.ErrStepHasParent.
func (l *Loop) SetChild(child Step) error {
	if child == l.child {
		return nil
	}
	if child != nil {
		if err := adopt(l, child); err != nil {
			return err
		}
	}
	release(l.child)
	l.child = child
	return nil
}

func (l *Loop) beforeEnter(timing.TimePoint) error {
	if err := l.cfg.Validate(); err != nil {
		return fmt.Errorf("enter loop %q: %w", l.name, err)
	}
	l.index = l.cfg.Start
	return nil
}

func (l *Loop) onActivate(at timing.TimePoint) error {
	return l.iterate(at)
}

func (l *Loop) onLeave(timing.TimePoint) {}

// iterate runs the iteration at the current index, or leaves the loop.
func (l *Loop) iterate(at timing.TimePoint) error {
	if !l.cfg.Condition.Holds(l.index, l.cfg.Stop) {
		return l.Leave(at)
	}
	l.emit(Event{Kind: EventIteration, At: at, Index: l.index})

	child, err := l.childFor(l.index)
	if err != nil {
		return err
	}
	if child == nil {
		l.disp.Post(func() { l.childLeft(nil, at) })
		return nil
	}
	return child.Enter(at)
}

func (l *Loop) childFor(index int64) (Step, error) {
	if l.factory == nil {
		return l.child, nil
	}
	child, err := l.factory(index)
	if err != nil {
		return nil, fmt.Errorf("loop %q child %d: %w", l.name, index, err)
	}
	if err := l.SetChild(child); err != nil {
		return nil, err
	}
	return child, nil
}

func (l *Loop) childLeft(_ Step, at timing.TimePoint) {
	if l.state != Activated {
		return
	}
	next := l.index + l.cfg.Step
	if (l.cfg.Step > 0 && next < l.index) || (l.cfg.Step < 0 && next > l.index) {
		// The index would wrap around; no further iteration is possible.
		if err := l.Leave(at); err != nil {
			l.disp.Fail(err)
		}
		return
	}
	l.index = next
	if err := l.iterate(at); err != nil {
		l.disp.Fail(err)
	}
}
