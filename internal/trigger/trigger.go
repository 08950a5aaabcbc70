// Package trigger fires digital trigger codes on a port at absolute future
// instants, clears them after a hold duration, and reports when the lines
// actually went high and low again.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/eventloop"
	"github.com/aelexs/psykit/internal/parport"
	"github.com/aelexs/psykit/internal/timing"
)

var tracer = otel.Tracer("trigger")

var (
	cyclesTotal   metric.Int64Counter
	onsetLatency  metric.Int64Histogram
	holdDurations metric.Int64Histogram
)

func init() {
	m := otel.Meter("trigger")

	cyclesTotal, _ = m.Int64Counter("trigger_cycles_total",
		metric.WithDescription("Completed trigger cycles"))
	onsetLatency, _ = m.Int64Histogram("trigger_onset_latency_us",
		metric.WithDescription("Delay between the requested and the actual onset"),
		metric.WithUnit("us"))
	holdDurations, _ = m.Int64Histogram("trigger_hold_us",
		metric.WithDescription("Time the trigger lines were held"),
		metric.WithUnit("us"))
}

// Dispatcher arms timers on the clock trigger times are expressed on.
// *eventloop.Loop implements it.
type Dispatcher interface {
	At(at timing.TimePoint, fn func()) *eventloop.Timer
	Clock() *timing.Clock
}

// Completion reports one finished trigger cycle.
type Completion struct {
	Mask uint8
	// FireAt is the requested onset.
	FireAt timing.TimePoint
	// Start and Finish are when the lines were actually set and cleared.
	Start  timing.TimePoint
	Finish timing.TimePoint
	// Hold is the requested hold duration.
	Hold timing.Duration
	// Err is set when writing to the port failed during the cycle.
	Err error
}

// OnsetLatency returns Start - FireAt.
func (c Completion) OnsetLatency() timing.Duration { return c.Start.Sub(c.FireAt) }

// Held returns Finish - Start.
func (c Completion) Held() timing.Duration { return c.Finish.Sub(c.Start) }

type phase int

const (
	idle phase = iota
	armed
	holding
)

type cycle struct {
	mask   uint8
	fireAt timing.TimePoint
	hold   timing.Duration
	start  timing.TimePoint
	timer  *eventloop.Timer
	span   trace.Span
}

// Config holds the dependencies of a Trigger.
type Config struct {
	Port   parport.Port
	Logger *slog.Logger
}

// Trigger schedules write cycles on one port. At most one cycle is armed or
// holding at a time; overlapping requests are rejected with
// domain.ErrTriggerBusy.
//
// A Trigger belongs to the event loop goroutine; only Open, Close and the
// query methods may be called before the loop runs.
type Trigger struct {
	disp      Dispatcher
	port      parport.Port
	logger    *slog.Logger
	phase     phase
	cur       *cycle
	listeners []*listener
}

type listener struct {
	fn func(Completion)
}

// New creates a Trigger driving cfg.Port.
func New(disp Dispatcher, cfg Config) *Trigger {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{disp: disp, port: cfg.Port, logger: logger}
}

// Port returns the port the trigger drives.
func (t *Trigger) Port() parport.Port { return t.port }

// Open opens port number num.
func (t *Trigger) Open(num int) error {
	t.disarm()
	return t.port.Open(num)
}

// IsOpen reports whether the port is open.
func (t *Trigger) IsOpen() bool { return t.port.IsOpen() }

// Busy reports whether a cycle is armed or holding.
func (t *Trigger) Busy() bool { return t.phase != idle }

// Subscribe registers fn for completions and returns a function removing it.
func (t *Trigger) Subscribe(fn func(Completion)) func() {
	l := &listener{fn: fn}
	t.listeners = append(t.listeners, l)
	return func() {
		for i, cur := range t.listeners {
			if cur == l {
				t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
				return
			}
		}
	}
}

// ScheduleWrite sets the lines to mask at fireAt and clears them holdFor
// after they were actually set. A fireAt in the past fires on the next
// dispatch.
func (t *Trigger) ScheduleWrite(mask uint8, fireAt timing.TimePoint, holdFor timing.Duration) error {
	switch {
	case !t.port.IsOpen():
		return fmt.Errorf("schedule 0x%02x: %w", mask, domain.ErrPortNotOpen)
	case holdFor <= 0:
		return fmt.Errorf("schedule 0x%02x: hold %s: %w", mask, holdFor, domain.ErrInvalidDuration)
	case t.phase != idle:
		return fmt.Errorf("schedule 0x%02x at %s: %w", mask, fireAt, domain.ErrTriggerBusy)
	case !t.disp.Clock().Owns(fireAt):
		return fmt.Errorf("schedule 0x%02x: %w", mask, domain.ErrClockMismatch)
	}

	_, span := tracer.Start(context.Background(), "trigger.cycle",
		trace.WithAttributes(
			attribute.Int("trigger.mask", int(mask)),
			attribute.String("trigger.port", t.port.Name()),
			attribute.Int64("trigger.hold_us", holdFor.Microseconds()),
		))

	c := &cycle{mask: mask, fireAt: fireAt, hold: holdFor, span: span}
	t.cur = c
	t.phase = armed
	c.timer = t.disp.At(fireAt, func() { t.fire(c) })
	return nil
}

func (t *Trigger) fire(c *cycle) {
	if t.cur != c || t.phase != armed {
		return
	}
	if err := t.port.Write(c.mask); err != nil {
		now := t.disp.Clock().Now()
		c.start = now
		t.finish(c, now, err)
		return
	}
	c.start = t.disp.Clock().Now()
	t.phase = holding
	c.timer = t.disp.At(c.start.Add(c.hold), func() { t.clear(c) })
}

func (t *Trigger) clear(c *cycle) {
	if t.cur != c || t.phase != holding {
		return
	}
	err := t.port.Write(0)
	t.finish(c, t.disp.Clock().Now(), err)
}

// finish releases the busy slot before notifying listeners, so a listener
// may schedule the next cycle.
func (t *Trigger) finish(c *cycle, at timing.TimePoint, err error) {
	t.cur = nil
	t.phase = idle

	done := Completion{
		Mask:   c.mask,
		FireAt: c.fireAt,
		Start:  c.start,
		Finish: at,
		Hold:   c.hold,
		Err:    err,
	}
	t.record(c, done)

	snapshot := append([]*listener(nil), t.listeners...)
	for _, l := range snapshot {
		l.fn(done)
	}
}

func (t *Trigger) record(c *cycle, done Completion) {
	ctx := context.Background()
	result := "ok"
	if done.Err != nil {
		result = "error"
		c.span.RecordError(done.Err)
		c.span.SetStatus(codes.Error, done.Err.Error())
		t.logger.Warn("trigger cycle failed",
			"mask", done.Mask, "port", t.port.Name(), "error", done.Err)
	}
	cyclesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	onsetLatency.Record(ctx, done.OnsetLatency().Microseconds())
	holdDurations.Record(ctx, done.Held().Microseconds())
	c.span.SetAttributes(
		attribute.Int64("trigger.onset_latency_us", done.OnsetLatency().Microseconds()),
		attribute.Int64("trigger.held_us", done.Held().Microseconds()),
	)
	c.span.End()
}

// disarm drops a pending cycle without notifying listeners and reports
// whether the lines were being held.
func (t *Trigger) disarm() bool {
	c := t.cur
	if c == nil {
		return false
	}
	wasHolding := t.phase == holding
	c.timer.Stop()
	c.span.SetStatus(codes.Error, "cancelled")
	c.span.End()
	t.cur = nil
	t.phase = idle
	return wasHolding
}

// Close cancels any pending cycle, drives the lines low if they were being
// held and closes the port.
func (t *Trigger) Close() error {
	var errs []error
	if t.disarm() {
		if err := t.port.Write(0); err != nil {
			errs = append(errs, fmt.Errorf("clear on close: %w", err))
		}
	}
	if err := t.port.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
