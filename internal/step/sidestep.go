package step

import (
	"fmt"

	"github.com/aelexs/psykit/internal/timing"
)

// SideStep runs a callback when activated and leaves straight away. It is
// used for bookkeeping between trials, such as jumping SteppingStones.
type SideStep struct {
	base
	leaf
	fn func(Step, timing.TimePoint) error
}

// NewSideStep creates a SideStep running the OnActivate callback, if any.
func NewSideStep(d Dispatcher, name string, opts ...Option) *SideStep {
	o := applyOptions(opts)
	s := &SideStep{fn: o.onActivate}
	s.base.init(s, s, d, name, o)
	return s
}

func (s *SideStep) onActivate(at timing.TimePoint) error {
	if s.fn != nil {
		if err := s.fn(s, at); err != nil {
			return fmt.Errorf("side step %q: %w", s.name, err)
		}
	}
	return s.Leave(at)
}

func (s *SideStep) onLeave(timing.TimePoint) {}
