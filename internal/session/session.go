// Package session runs experiments and trigger tests on an event loop and
// records what happened to an event log.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/eventlog"
	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/observability"
	"github.com/aelexs/psykit/internal/step"
	"github.com/aelexs/psykit/internal/timing"
	"github.com/aelexs/psykit/internal/trigger"
	"github.com/aelexs/psykit/pkg/record"
)

// Params describes one experiment session.
type Params struct {
	ID         domain.SessionID
	Experiment string
	Driver     domain.Driver
	Loop       *eventloop.Loop
	Root       step.Step
	// Trigger is optional; its completions are recorded when set.
	Trigger *trigger.Trigger
	Log     *eventlog.Log
	// Lead delays entering the root so the first onset is not late.
	Lead   timing.Duration
	Logger *slog.Logger
}

// Summary describes a finished session.
type Summary struct {
	ID       domain.SessionID
	Steps    int
	Triggers LatencyStats
	Elapsed  timing.Duration
}

// Run enters the root step at now + Lead and dispatches until it leaves,
// writing every step event and trigger completion to the log.
func Run(ctx context.Context, p Params) (*Summary, error) {
	logger := p.Logger
	if logger == nil {
		logger = observability.LoggerFromContext(ctx)
	}
	logger = logger.With("session_id", p.ID.String(), "experiment", p.Experiment)

	loop := p.Loop
	clock := loop.Clock()
	sum := &Summary{ID: p.ID}
	rec := recorder{log: p.Log, loop: loop}

	if err := rec.session(p, record.SessionStart, nil); err != nil {
		return nil, err
	}

	var unsubscribe []func()
	defer func() {
		for _, u := range unsubscribe {
			u()
		}
	}()

	step.Walk(p.Root, func(s step.Step) {
		sum.Steps++
		unsubscribe = append(unsubscribe, s.Subscribe(rec.step))
	})
	// The session ends when the root has left and no trigger cycle is
	// still holding its lines.
	rootLeft := false
	finishIfDone := func() {
		if rootLeft && (p.Trigger == nil || !p.Trigger.Busy()) {
			loop.Quit()
		}
	}
	unsubscribe = append(unsubscribe, p.Root.Subscribe(func(ev step.Event) {
		if ev.Kind == step.EventLeave {
			rootLeft = true
			finishIfDone()
		}
	}))
	if p.Trigger != nil {
		unsubscribe = append(unsubscribe, p.Trigger.Subscribe(func(c trigger.Completion) {
			sum.Triggers.Add(c)
			rec.trigger(c)
			finishIfDone()
		}))
	}

	start := clock.Now().Add(p.Lead)
	loop.At(start, func() {
		if err := p.Root.Enter(start); err != nil {
			loop.Fail(fmt.Errorf("enter %q: %w", p.Root.Name(), err))
		}
	})

	logger.InfoContext(ctx, "session started",
		"driver", string(p.Driver), "steps", sum.Steps, "lead", p.Lead.String())

	runErr := loop.Run(ctx)
	sum.Elapsed = clock.Now().Sub(start)

	if err := rec.session(p, record.SessionEnd, runErr); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		logger.ErrorContext(ctx, "session failed", "error", runErr)
		return sum, runErr
	}
	logger.InfoContext(ctx, "session finished",
		"elapsed", sum.Elapsed.String(),
		"triggers", sum.Triggers.Count,
		"trigger_failures", sum.Triggers.Failed,
		"max_onset_latency", sum.Triggers.MaxOnset.String())
	return sum, nil
}

// recorder converts events to records. A failing log write aborts the run.
type recorder struct {
	log  *eventlog.Log
	loop *eventloop.Loop
}

func (r recorder) step(ev step.Event) {
	sr := record.StepRecord{
		Path:  step.Path(ev.Step),
		Event: ev.Kind.String(),
		AtUS:  ev.At.SinceStart().Microseconds(),
	}
	switch ev.Kind {
	case step.EventIteration:
		idx := ev.Index
		sr.Index = &idx
	case step.EventActivate:
		sr.Indices = step.LoopIndices(ev.Step)
	}
	if err := r.log.Step(sr); err != nil {
		r.loop.Fail(err)
	}
}

func (r recorder) trigger(c trigger.Completion) {
	if err := r.log.Trigger(triggerRecord(c)); err != nil {
		r.loop.Fail(err)
	}
}

func (r recorder) session(p Params, phase string, runErr error) error {
	sr := record.SessionRecord{
		Phase:      phase,
		Experiment: p.Experiment,
		Driver:     string(p.Driver),
		WallTime:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if p.Trigger != nil {
		sr.Port = p.Trigger.Port().Name()
	}
	if runErr != nil {
		sr.Error = runErr.Error()
	}
	return r.log.Session(sr)
}

func triggerRecord(c trigger.Completion) record.TriggerRecord {
	tr := record.TriggerRecord{
		Mask:      c.Mask,
		FireAtUS:  c.FireAt.SinceStart().Microseconds(),
		StartUS:   c.Start.SinceStart().Microseconds(),
		FinishUS:  c.Finish.SinceStart().Microseconds(),
		HoldUS:    c.Hold.Microseconds(),
		LatencyUS: c.OnsetLatency().Microseconds(),
	}
	if c.Err != nil {
		tr.Error = c.Err.Error()
	}
	return tr
}
