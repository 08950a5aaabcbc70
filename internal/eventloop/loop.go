// Package eventloop runs timed callbacks on a single goroutine.
//
// Posted functions and timers execute one at a time on the goroutine that
// called Run, so step and trigger state needs no locking. Post, At and After
// may be called from any goroutine.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/timing"
)

// ErrLoopRunning is returned when Run is called on a loop that is already running.
var ErrLoopRunning = errors.New("eventloop: loop is already running")

// Option configures a Loop.
type Option func(*Loop)

// WithWaiter replaces the default PrecisionWaiter.
func WithWaiter(w Waiter) Option {
	return func(l *Loop) { l.waiter = w }
}

// WithLogger sets the logger used for loop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// ExitWhenIdle makes Run return nil once no callbacks are queued and no
// timers are armed.
func ExitWhenIdle() Option {
	return func(l *Loop) { l.exitWhenIdle = true }
}

// LockOSThread pins the loop goroutine to its OS thread for the duration of Run.
func LockOSThread() Option {
	return func(l *Loop) { l.lockThread = true }
}

// Loop is a cooperative dispatcher for posted callbacks and timers.
type Loop struct {
	clock        *timing.Clock
	waiter       Waiter
	logger       *slog.Logger
	exitWhenIdle bool
	lockThread   bool

	// wake has capacity one; a pending value means "re-check the queues".
	wake chan struct{}

	mu      sync.Mutex
	queue   []func()
	timers  timerHeap
	seq     uint64
	running bool
	quit    bool
	err     error
}

// New creates a Loop whose timers are expressed on clock.
func New(clock *timing.Clock, opts ...Option) *Loop {
	l := &Loop{
		clock:  clock,
		waiter: NewPrecisionWaiter(domain.SpinThreshold),
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the clock timers are expressed on.
func (l *Loop) Clock() *timing.Clock { return l.clock }

// Post queues fn to run on the loop goroutine after already queued callbacks.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// At arms a one-shot timer that runs fn once the clock reaches at. Deadlines
// already in the past fire on the next dispatch. Timers with equal deadlines
// fire in the order they were armed.
//
// at must come from the loop's clock; anything else panics with
// domain.ErrClockMismatch.
func (l *Loop) At(at timing.TimePoint, fn func()) *Timer {
	if !l.clock.Owns(at) {
		panic(fmt.Errorf("eventloop: timer at %s: %w", at, domain.ErrClockMismatch))
	}
	l.mu.Lock()
	l.seq++
	t := &Timer{loop: l, when: at, fn: fn, seq: l.seq}
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return t
}

// After arms a timer d from now.
func (l *Loop) After(d timing.Duration, fn func()) *Timer {
	return l.At(l.clock.Now().Add(d), fn)
}

// Quit makes Run return nil after the current callback.
func (l *Loop) Quit() {
	l.stop(nil)
}

// Fail makes Run return err after the current callback. The first error wins.
func (l *Loop) Fail(err error) {
	l.stop(err)
}

func (l *Loop) stop(err error) {
	l.mu.Lock()
	if !l.quit {
		l.quit = true
		l.err = err
	}
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run dispatches callbacks until Quit or Fail is called, ctx is done, or,
// with ExitWhenIdle, nothing is left to do. Pending callbacks and timers are
// kept and run by a later call to Run.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrLoopRunning
	}
	l.running = true
	l.quit = false
	l.err = nil
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	if l.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if done, err := l.runQueued(); done {
			return err
		}
		if done, err := l.fireDue(); done {
			return err
		}

		d, idle := l.nextWait()
		if idle && l.exitWhenIdle {
			l.logger.Debug("event loop idle, exiting")
			return nil
		}
		if d == 0 {
			continue
		}
		if err := l.waiter.Wait(ctx, d.Std(), l.wake); err != nil {
			return err
		}
	}
}

// runQueued runs the callbacks queued when it was called. Callbacks posted
// meanwhile wait for the next pass so timers are not starved.
func (l *Loop) runQueued() (bool, error) {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for i, fn := range batch {
		fn()
		if done, err := l.stopped(); done {
			l.requeue(batch[i+1:])
			return true, err
		}
	}
	return l.stopped()
}

func (l *Loop) requeue(rest []func()) {
	if len(rest) == 0 {
		return
	}
	l.mu.Lock()
	l.queue = append(rest, l.queue...)
	l.mu.Unlock()
}

// fireDue runs every timer whose deadline has passed, earliest first.
func (l *Loop) fireDue() (bool, error) {
	now := l.clock.Now()
	for {
		l.mu.Lock()
		if l.quit {
			err := l.err
			l.mu.Unlock()
			return true, err
		}
		if len(l.timers) == 0 || l.timers[0].when.After(now) {
			l.mu.Unlock()
			return false, nil
		}
		t := heap.Pop(&l.timers).(*Timer)
		l.mu.Unlock()

		t.fn()
	}
}

// nextWait returns how long to wait for the earliest timer. A negative
// duration means no timer is armed. idle reports that nothing is pending.
func (l *Loop) nextWait() (d timing.Duration, idle bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) > 0 || l.quit {
		return 0, false
	}
	if len(l.timers) == 0 {
		return -1, true
	}
	d = l.clock.Until(l.timers[0].when)
	if d <= 0 {
		return 0, false
	}
	return d, false
}

func (l *Loop) stopped() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quit, l.err
}

// Pending returns the number of queued callbacks and armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + len(l.timers)
}
