package runner

import (
	"fmt"
	"log/slog"

	"github.com/aelexs/psykit/internal/config"
	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/eventlog"
	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/parport"
	"github.com/aelexs/psykit/internal/timing"
	"github.com/aelexs/psykit/internal/trigger"
)

// NewLoop returns an event loop on the system clock that sleeps until
// cfg.Timing.SpinThreshold before each deadline and spins the rest.
func NewLoop(cfg *config.Config, logger *slog.Logger) *eventloop.Loop {
	return eventloop.New(timing.NewClock(),
		eventloop.WithWaiter(eventloop.NewPrecisionWaiter(cfg.Timing.SpinThreshold)),
		eventloop.WithLogger(logger),
		eventloop.LockOSThread(),
	)
}

// OpenTrigger creates the configured port, opens it and returns a Trigger
// dispatching on loop. The caller closes the Trigger.
func OpenTrigger(cfg *config.Config, loop *eventloop.Loop, logger *slog.Logger) (*trigger.Trigger, error) {
	port, err := parport.New(domain.Driver(cfg.Trigger.Driver), cfg.Trigger.Baud)
	if err != nil {
		return nil, err
	}
	dir, err := parport.ParseDirection(cfg.Trigger.Direction)
	if err != nil {
		return nil, err
	}

	// The port is configured before Open so the handshake runs once with
	// the final direction.
	if dir != port.Direction() {
		if err := port.SetDirection(dir); err != nil {
			return nil, fmt.Errorf("set direction %s: %w", dir, err)
		}
	}
	trig := trigger.New(loop, trigger.Config{Port: port, Logger: logger})
	if err := trig.Open(cfg.Trigger.Port); err != nil {
		return nil, err
	}

	logger.Info("trigger port open",
		slog.String("driver", cfg.Trigger.Driver),
		slog.String("port", port.Name()),
		slog.String("direction", dir.String()),
	)
	return trig, nil
}

// CreateLog opens the configured event log for session id.
func CreateLog(cfg *config.Config, id domain.SessionID) (*eventlog.Log, error) {
	w, err := eventlog.Create(cfg.Output.Path, domain.LogFormat(cfg.Output.Format))
	if err != nil {
		return nil, err
	}
	return eventlog.New(id.String(), w), nil
}
