package eventloop

import (
	"context"
	"runtime"
	"time"
)

// Waiter blocks the loop goroutine until a deadline or a wake-up.
type Waiter interface {
	// Wait returns after d has elapsed, a value arrives on wake, or ctx is
	// done (returning ctx.Err()). A negative d waits without a deadline.
	Wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error
}

// PrecisionWaiter sleeps on the runtime timer until spin before the deadline
// and then yields in a busy loop, trading CPU for wake-up accuracy.
type PrecisionWaiter struct {
	spin time.Duration
}

// NewPrecisionWaiter returns a PrecisionWaiter that busy-waits the final spin
// of every wait. A zero spin disables busy-waiting.
func NewPrecisionWaiter(spin time.Duration) *PrecisionWaiter {
	return &PrecisionWaiter{spin: spin}
}

// Wait implements Waiter.
func (w *PrecisionWaiter) Wait(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if d < 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
			return nil
		}
	}

	deadline := time.Now().Add(d)
	if coarse := d - w.spin; coarse > 0 {
		t := time.NewTimer(coarse)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
			return nil
		case <-t.C:
		}
	}

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
			return nil
		default:
		}
		runtime.Gosched()
	}
	return nil
}
