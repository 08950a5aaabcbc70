// Package main is the entrypoint for the trigger stress test.
// psytrigger drives the configured port with chained trigger cycles and
// prints the onset latency distribution.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/errmap"
	"github.com/aelexs/psykit/internal/eventlog"
	"github.com/aelexs/psykit/internal/runner"
	"github.com/aelexs/psykit/internal/session"
	"github.com/aelexs/psykit/internal/timing"
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal (%s): %v\n", errmap.Class(err), err)
		os.Exit(errmap.ExitCode(err))
	}
}

type options struct {
	record bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("psytrigger", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.record, "record", false, "write every completion to the event log")
	err := fs.Parse(args)
	return opts, err
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	return runner.Run(ctx, runner.Params{
		Name: "psytrigger",
		Main: func(ctx context.Context, env runner.Env) error {
			return stress(ctx, env, opts)
		},
	}, nil)
}

func stress(ctx context.Context, env runner.Env, opts options) (err error) {
	cfg := env.Config
	loop := runner.NewLoop(cfg, env.Logger)

	trig, err := runner.OpenTrigger(cfg, loop, env.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := trig.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close trigger port: %w", closeErr))
		}
	}()

	var log *eventlog.Log
	out := io.Writer(os.Stdout)
	if opts.record {
		log, err = runner.CreateLog(cfg, env.SessionID)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := log.Close(); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("close event log: %w", closeErr))
			}
		}()
		if cfg.Output.Path == "-" {
			out = os.Stderr
		}
	}

	stats, err := session.RunTriggerStress(ctx, session.StressParams{
		ID:      env.SessionID,
		Driver:  domain.Driver(cfg.Trigger.Driver),
		Loop:    loop,
		Trigger: trig,
		Log:     log,
		Count:   cfg.Stress.Count,
		Mask:    uint8(cfg.Stress.Mask),
		Hold:    timing.FromStd(cfg.Stress.Hold),
		Onset:   timing.FromStd(cfg.Stress.Onset),
	})
	if err != nil {
		return fmt.Errorf("trigger stress: %w", err)
	}

	title := fmt.Sprintf("trigger stress on %s (mask 0x%02X, hold %s)",
		trig.Port().Name(), cfg.Stress.Mask, cfg.Stress.Hold)
	return session.WriteReport(out, title, *stats)
}
