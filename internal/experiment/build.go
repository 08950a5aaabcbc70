package experiment

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/step"
	"github.com/aelexs/psykit/internal/timing"
)

// Build creates the step tree of def. marker receives the onset triggers of
// trials that declare one and may be nil when none do.
func Build(def *Definition, d step.Dispatcher, marker step.Marker) (step.Step, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}
	b := builder{disp: d, marker: marker}
	return b.node(&def.Root)
}

type builder struct {
	disp   step.Dispatcher
	marker step.Marker
}

func (b builder) node(n *Node) (step.Step, error) {
	switch n.Type {
	case TypeTrial:
		return b.trial(n)
	case TypeLoop:
		return b.loop(n)
	case TypeSequence:
		return b.sequence(n)
	}
	return nil, fmt.Errorf("step %q: unknown type %q: %w", n.Name, n.Type, domain.ErrInvalidExperiment)
}

func (b builder) trial(n *Node) (step.Step, error) {
	var opts []step.Option
	if n.Duration > 0 {
		opts = append(opts, step.WithDuration(timing.FromStd(n.Duration)))
	}
	if t := n.Trigger; t != nil {
		if b.marker == nil {
			return nil, fmt.Errorf("trial %q has a trigger but no trigger port is configured: %w",
				n.Name, domain.ErrInvalidExperiment)
		}
		opts = append(opts, step.WithOnsetTrigger(b.marker, t.Mask,
			timing.FromStd(t.Offset), timing.FromStd(t.Hold)))
	}
	return step.NewTrial(b.disp, n.Name, opts...), nil
}

func (b builder) loop(n *Node) (step.Step, error) {
	cfg, err := n.loopConfig()
	if err != nil {
		return nil, fmt.Errorf("loop %q: %w", n.Name, err)
	}
	child, err := b.node(n.Child)
	if err != nil {
		return nil, err
	}
	l := step.NewLoop(b.disp, n.Name, cfg)
	if err := l.SetChild(child); err != nil {
		return nil, err
	}
	return l, nil
}

func (b builder) sequence(n *Node) (step.Step, error) {
	s := step.NewSteppingStones(b.disp, n.Name)
	for i := range n.Steps {
		child, err := b.node(&n.Steps[i])
		if err != nil {
			return nil, err
		}
		if err := s.AddNamed(n.Steps[i].Name, child); err != nil {
			return nil, err
		}
	}
	return s, nil
}
