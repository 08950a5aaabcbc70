// Package timingtest provides test doubles for the timing package.
package timingtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aelexs/psykit/internal/timing"
)

// ErrIdleWait is returned by Wait when asked to block with nothing scheduled:
// under virtual time that would block forever.
var ErrIdleWait = errors.New("timingtest: wait with no deadline")

// FakeSource is a deterministic, advanceable time source for tests.
// Use Advance/Set to control time progression instead of creating new
// clock instances.
//
// FakeSource also satisfies the event loop's Waiter: waiting for d advances
// the source by d, so timers fire in virtual time without real sleeping.
type FakeSource struct {
	mu      sync.Mutex
	current time.Time
	waited  time.Duration
}

// NewFakeSource creates a FakeSource set to the given time.
func NewFakeSource(t time.Time) *FakeSource {
	return &FakeSource{current: t}
}

// Now returns the fake source's current time.
func (s *FakeSource) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Advance moves the fake source forward by the given duration.
func (s *FakeSource) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.current.Add(d)
}

// Set changes the fake source to a specific time.
func (s *FakeSource) Set(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t
}

// Waited returns the total virtual time consumed by Wait.
func (s *FakeSource) Waited() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waited
}

// Wait advances virtual time by d unless a wake-up is already pending.
func (s *FakeSource) Wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-wake:
		return nil
	default:
	}
	if d < 0 {
		return ErrIdleWait
	}
	s.mu.Lock()
	s.current = s.current.Add(d)
	s.waited += d
	s.mu.Unlock()
	return nil
}

// NewClock returns a FakeSource starting at a fixed instant together with a
// clock reading it.
func NewClock() (*timing.Clock, *FakeSource) {
	src := NewFakeSource(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	return timing.NewClockWithSource(src), src
}

// Ensure FakeSource implements timing.Source at compile time.
var _ timing.Source = (*FakeSource)(nil)
