// Package main is the entrypoint for the experiment runner.
// psyrun loads an experiment definition, runs it against the configured
// trigger port and writes every step and trigger event to the event log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/errmap"
	"github.com/aelexs/psykit/internal/experiment"
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
	experiment string
	check      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("psyrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.experiment, "experiment", "", "experiment definition (YAML)")
	fs.BoolVar(&opts.check, "check", false, "validate the definition and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.experiment == "" {
		return opts, fmt.Errorf("%w: -experiment is required", domain.ErrConfigRequired)
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	def, err := experiment.Load(opts.experiment)
	if err != nil {
		return err
	}
	if err := experiment.CheckSelfTimed(def); err != nil {
		return err
	}
	if opts.check {
		fmt.Printf("%s: ok\n", def.Name)
		return nil
	}

	return runner.Run(ctx, runner.Params{
		Name: "psyrun",
		Main: func(ctx context.Context, env runner.Env) error {
			return runExperiment(ctx, env, def)
		},
	}, nil)
}

func runExperiment(ctx context.Context, env runner.Env, def *experiment.Definition) (err error) {
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

	root, err := experiment.Build(def, loop, trig)
	if err != nil {
		return err
	}

	log, err := runner.CreateLog(cfg, env.SessionID)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close event log: %w", closeErr))
		}
	}()

	sum, err := session.Run(ctx, session.Params{
		ID:         env.SessionID,
		Experiment: def.Name,
		Driver:     domain.Driver(cfg.Trigger.Driver),
		Loop:       loop,
		Root:       root,
		Trigger:    trig,
		Log:        log,
		Lead:       timing.FromStd(cfg.Timing.Lead),
	})
	if err != nil {
		return fmt.Errorf("run %q: %w", def.Name, err)
	}

	env.Logger.Info("experiment complete",
		slog.String("experiment", def.Name),
		slog.Int("steps", sum.Steps),
		slog.Uint64("records", log.Len()),
	)
	if sum.Triggers.Count > 0 {
		return session.WriteReport(reportWriter(cfg.Output.Path), def.Name, sum.Triggers)
	}
	return nil
}

// reportWriter keeps the summary off stdout when the event log uses it.
func reportWriter(outputPath string) io.Writer {
	if outputPath == "-" {
		return os.Stderr
	}
	return os.Stdout
}
