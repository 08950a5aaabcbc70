package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/eventlog"
	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/observability"
	"github.com/aelexs/psykit/internal/timing"
	"github.com/aelexs/psykit/internal/trigger"
	"github.com/aelexs/psykit/pkg/record"
)

// StressParams describes a chained trigger run: Count cycles of Mask held
// for Hold, each scheduled Onset after the previous one finished.
type StressParams struct {
	ID      domain.SessionID
	Driver  domain.Driver
	Loop    *eventloop.Loop
	Trigger *trigger.Trigger
	// Log is optional.
	Log    *eventlog.Log
	Count  int
	Mask   uint8
	Hold   timing.Duration
	Onset  timing.Duration
	Logger *slog.Logger
}

// RunTriggerStress runs the chained trigger test and returns the latency
// statistics. Each new cycle is scheduled from the previous completion.
func RunTriggerStress(ctx context.Context, p StressParams) (*LatencyStats, error) {
	if p.Count <= 0 {
		return nil, fmt.Errorf("stress count %d: %w", p.Count, domain.ErrInvalidConfig)
	}
	logger := p.Logger
	if logger == nil {
		logger = observability.LoggerFromContext(ctx)
	}
	logger = logger.With("session_id", p.ID.String())

	loop := p.Loop
	clock := loop.Clock()
	stats := &LatencyStats{}
	params := Params{ID: p.ID, Experiment: "trigger-stress", Driver: p.Driver, Trigger: p.Trigger}

	var rec *recorder
	if p.Log != nil {
		rec = &recorder{log: p.Log, loop: loop}
		if err := rec.session(params, record.SessionStart, nil); err != nil {
			return nil, err
		}
	}

	unsubscribe := p.Trigger.Subscribe(func(c trigger.Completion) {
		stats.Add(c)
		if rec != nil {
			rec.trigger(c)
		}
		if stats.Count >= p.Count {
			loop.Quit()
			return
		}
		if err := p.Trigger.ScheduleWrite(p.Mask, c.Finish.Add(p.Onset), p.Hold); err != nil {
			loop.Fail(fmt.Errorf("schedule trigger %d: %w", stats.Count+1, err))
		}
	})
	defer unsubscribe()

	if err := p.Trigger.ScheduleWrite(p.Mask, clock.Now().Add(p.Onset), p.Hold); err != nil {
		return nil, fmt.Errorf("schedule first trigger: %w", err)
	}

	logger.InfoContext(ctx, "trigger stress started",
		"count", p.Count, "mask", p.Mask, "hold", p.Hold.String(), "onset", p.Onset.String())

	runErr := loop.Run(ctx)
	if rec != nil {
		if err := rec.session(params, record.SessionEnd, runErr); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return stats, runErr
	}

	logger.InfoContext(ctx, "trigger stress finished",
		"completed", stats.Count,
		"failed", stats.Failed,
		"min_onset_latency", stats.MinOnset.String(),
		"mean_onset_latency", stats.MeanOnset.String(),
		"max_onset_latency", stats.MaxOnset.String(),
		"mean_held", stats.MeanHeld.String())
	return stats, nil
}
