package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/timing"
)

// SteppingStones runs its children one after another in the order they were
// added. The next child can be redirected by index or name, for example from
// a SideStep, to branch or repeat part of an experiment.
type SteppingStones struct {
	base
	steps []Step
	names map[string]int
	next  int
}

// NewSteppingStones creates an empty SteppingStones.
func NewSteppingStones(d Dispatcher, name string, opts ...Option) *SteppingStones {
	o := applyOptions(opts)
	s := &SteppingStones{names: make(map[string]int)}
	s.base.init(s, s, d, name, o)
	return s
}

// Add appends child.
func (s *SteppingStones) Add(child Step) error {
	if err := adopt(s, child); err != nil {
		return err
	}
	s.steps = append(s.steps, child)
	return nil
}

// AddNamed appends child and registers it under name for JumpToName.
func (s *SteppingStones) AddNamed(name string, child Step) error {
	if _, ok := s.names[name]; ok {
		return fmt.Errorf("add %q to %q: %w", name, s.name, domain.ErrStepExists)
	}
	if err := s.Add(child); err != nil {
		return err
	}
	s.names[name] = len(s.steps) - 1
	return nil
}

// Len returns the number of children.
func (s *SteppingStones) Len() int { return len(s.steps) }

// Steps returns the children in order.
func (s *SteppingStones) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// Next returns the index of the child that runs next.
func (s *SteppingStones) Next() int { return s.next }

// JumpToIndex makes the child at index run next.
func (s *SteppingStones) JumpToIndex(index int) error {
	if index < 0 || index >= len(s.steps) {
		return fmt.Errorf("jump %q to %d of %d: %w", s.name, index, len(s.steps), domain.ErrInvalidIndex)
	}
	s.next = index
	return nil
}

// JumpToName makes the child registered under name run next.
func (s *SteppingStones) JumpToName(name string) error {
	index, ok := s.names[name]
	if !ok {
		return fmt.Errorf("jump %q to %q: %w", s.name, name, domain.ErrNoSuchStep)
	}
	return s.JumpToIndex(index)
}

func (s *SteppingStones) beforeEnter(timing.TimePoint) error {
	s.next = 0
	return nil
}

func (s *SteppingStones) onActivate(at timing.TimePoint) error {
	return s.enterNext(at)
}

func (s *SteppingStones) onLeave(timing.TimePoint) {}

func (s *SteppingStones) enterNext(at timing.TimePoint) error {
	if s.next >= len(s.steps) {
		return s.Leave(at)
	}
	child := s.steps[s.next]
	s.next++
	return child.Enter(at)
}

func (s *SteppingStones) childLeft(_ Step, at timing.TimePoint) {
	if s.state != Activated {
		return
	}
	if err := s.enterNext(at); err != nil {
		s.disp.Fail(err)
	}
}
