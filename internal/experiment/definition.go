// Package experiment reads experiment definitions from YAML and builds the
// step tree they describe.
package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/step"
)

// Node types.
const (
	TypeTrial    = "trial"
	TypeLoop     = "loop"
	TypeSequence = "sequence"
)

// Definition is a complete experiment.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Root        Node   `yaml:"root"`
}

// Node is one step of the tree. Which fields apply depends on Type.
type Node struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`

	// trial
	Duration time.Duration `yaml:"duration,omitempty"` // zero: leave manually
	Trigger  *TriggerSpec  `yaml:"trigger,omitempty"`

	// loop
	Repeat    *int64 `yaml:"repeat,omitempty"` // shorthand for 0 < repeat step 1
	Start     int64  `yaml:"start,omitempty"`
	Stop      int64  `yaml:"stop,omitempty"`
	Step      *int64 `yaml:"step,omitempty"` // default 1
	Condition string `yaml:"condition,omitempty"`
	Child     *Node  `yaml:"child,omitempty"`

	// sequence
	Steps []Node `yaml:"steps,omitempty"`
}

// TriggerSpec is the onset trigger of a trial.
type TriggerSpec struct {
	Mask   uint8         `yaml:"mask"`
	Offset time.Duration `yaml:"offset,omitempty"`
	Hold   time.Duration `yaml:"hold"`
}

// Load reads and parses a YAML experiment file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty definition: %w", domain.ErrInvalidExperiment)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidExperiment, err)
	}
	if err := Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks a definition without building it.
func Validate(def *Definition) error {
	if def.Name == "" {
		return invalid("", "experiment name is required")
	}
	return validateNode(&def.Root, def.Name)
}

func invalid(path, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	return fmt.Errorf("%s: %w", msg, domain.ErrInvalidExperiment)
}

func validateNode(n *Node, parent string) error {
	path := parent + "/" + n.Name
	if n.Name == "" {
		return invalid(parent, "%s without a name", n.typeLabel())
	}

	switch n.Type {
	case TypeTrial:
		if n.Duration < 0 {
			return invalid(path, "negative duration %s", n.Duration)
		}
		if t := n.Trigger; t != nil {
			if t.Hold <= 0 {
				return invalid(path, "trigger hold must be positive")
			}
			if t.Offset < 0 {
				return invalid(path, "negative trigger offset %s", t.Offset)
			}
			if n.Duration > 0 && t.Offset+t.Hold >= n.Duration {
				return invalid(path, "trigger offset %s + hold %s does not end before the trial's %s",
					t.Offset, t.Hold, n.Duration)
			}
		}
		if n.Child != nil || len(n.Steps) > 0 {
			return invalid(path, "a trial has no children")
		}
	case TypeLoop:
		cfg, err := n.loopConfig()
		if err != nil {
			return invalid(path, "%v", err)
		}
		if err := cfg.Validate(); err != nil {
			return invalid(path, "%v", err)
		}
		if n.Child == nil {
			return invalid(path, "loop without a child")
		}
		return validateNode(n.Child, path)
	case TypeSequence:
		seen := make(map[string]bool, len(n.Steps))
		for i := range n.Steps {
			child := &n.Steps[i]
			if seen[child.Name] {
				return invalid(path, "duplicate step name %q", child.Name)
			}
			seen[child.Name] = true
			if err := validateNode(child, path); err != nil {
				return err
			}
		}
	default:
		return invalid(path, "unknown step type %q", n.Type)
	}
	return nil
}

func (n *Node) typeLabel() string {
	if n.Type == "" {
		return "step"
	}
	return n.Type
}

func (n *Node) loopConfig() (step.LoopConfig, error) {
	if n.Repeat != nil {
		if *n.Repeat < 0 {
			return step.LoopConfig{}, fmt.Errorf("negative repeat %d", *n.Repeat)
		}
		return step.LoopConfig{Start: 0, Stop: *n.Repeat, Step: 1, Condition: step.Less}, nil
	}
	cfg := step.LoopConfig{Start: n.Start, Stop: n.Stop, Step: 1, Condition: step.Less}
	if n.Step != nil {
		cfg.Step = *n.Step
	}
	if n.Condition != "" {
		c, err := step.ParseCondition(n.Condition)
		if err != nil {
			return step.LoopConfig{}, err
		}
		cfg.Condition = c
	}
	return cfg, nil
}

// CheckSelfTimed reports trials without a duration. Such trials only leave
// when the application calls Leave, so a definition run without one would
// never finish.
func CheckSelfTimed(def *Definition) error {
	return selfTimed(&def.Root, def.Name)
}

func selfTimed(n *Node, parent string) error {
	path := parent + "/" + n.Name
	switch n.Type {
	case TypeTrial:
		if n.Duration == 0 {
			return invalid(path, "trial needs a duration to run unattended")
		}
	case TypeLoop:
		if n.Child != nil {
			return selfTimed(n.Child, path)
		}
	case TypeSequence:
		for i := range n.Steps {
			if err := selfTimed(&n.Steps[i], path); err != nil {
				return err
			}
		}
	}
	return nil
}
