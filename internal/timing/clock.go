// Package timing provides the monotonic clock and time arithmetic used by
// every timed operation: Clock produces TimePoints, TimePoints differ by
// Durations.
package timing

import "time"

// Source provides the current time. Implementations may be real (production)
// or deterministic (testing).
type Source interface {
	// Now returns the current time. Only differences between readings are
	// used, so a real source must carry a monotonic reading.
	Now() time.Time
}

// SystemSource implements Source using the system clock.
// time.Now includes a monotonic reading, so wall clock adjustments do not
// affect differences.
type SystemSource struct{}

// Now returns time.Now().
func (SystemSource) Now() time.Time {
	return time.Now()
}

// Ensure SystemSource implements Source at compile time.
var _ Source = SystemSource{}

// epoch anchors one clock's timeline. Its address is the clock identity
// carried by every TimePoint.
type epoch struct {
	zero time.Time
}

// Clock reads a Source relative to the instant the clock was created.
// A Clock has no mutable state and may be read from any goroutine, but its
// TimePoints must only be mixed with TimePoints of the same Clock.
type Clock struct {
	src   Source
	epoch *epoch
}

// NewClock creates a Clock on the system monotonic clock.
func NewClock() *Clock {
	return NewClockWithSource(SystemSource{})
}

// NewClockWithSource creates a Clock reading src.
func NewClockWithSource(src Source) *Clock {
	return &Clock{src: src, epoch: &epoch{zero: src.Now()}}
}

// Now returns the current TimePoint. Successive calls never decrease.
func (c *Clock) Now() TimePoint {
	return TimePoint{epoch: c.epoch, since: Duration(c.src.Now().Sub(c.epoch.zero))}
}

// Zero returns the TimePoint at which the clock was created.
func (c *Clock) Zero() TimePoint {
	return TimePoint{epoch: c.epoch}
}

// At returns the TimePoint d after the clock's creation.
func (c *Clock) At(d Duration) TimePoint {
	return TimePoint{epoch: c.epoch, since: d}
}

// Owns reports whether tp was produced by this clock.
func (c *Clock) Owns(tp TimePoint) bool {
	return tp.epoch == c.epoch
}

// Until returns the Duration from now until tp; negative if tp has passed.
func (c *Clock) Until(tp TimePoint) Duration {
	return tp.Sub(c.Now())
}
