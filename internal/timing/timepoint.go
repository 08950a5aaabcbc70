package timing

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
)

// TimePoint is an instant on one Clock's timeline. It remembers which clock
// produced it; comparing or subtracting TimePoints of different clocks is a
// programming error and panics with domain.ErrClockMismatch.
//
// The zero TimePoint belongs to no clock.
type TimePoint struct {
	epoch *epoch
	since Duration
}

// Add returns t + d.
func (t TimePoint) Add(d Duration) TimePoint {
	return TimePoint{epoch: t.epoch, since: t.since + d}
}

// SubDuration returns t - d.
func (t TimePoint) SubDuration(d Duration) TimePoint {
	return TimePoint{epoch: t.epoch, since: t.since - d}
}

// Sub returns the Duration t - o.
func (t TimePoint) Sub(o TimePoint) Duration {
	t.mustShareClock(o)
	return t.since - o.since
}

// Compare returns -1, 0 or +1.
func (t TimePoint) Compare(o TimePoint) int {
	t.mustShareClock(o)
	return t.since.Compare(o.since)
}

// Before reports whether t is strictly earlier than o.
func (t TimePoint) Before(o TimePoint) bool { return t.Compare(o) < 0 }

// After reports whether t is strictly later than o.
func (t TimePoint) After(o TimePoint) bool { return t.Compare(o) > 0 }

// Equal reports whether t and o are the same instant.
func (t TimePoint) Equal(o TimePoint) bool { return t.Compare(o) == 0 }

// SinceStart returns the offset from the clock's epoch.
func (t TimePoint) SinceStart() Duration { return t.since }

// SameClock reports whether t and o can be compared.
func (t TimePoint) SameClock(o TimePoint) bool { return t.epoch == o.epoch }

// IsZero reports whether t is the zero TimePoint.
func (t TimePoint) IsZero() bool { return t.epoch == nil && t.since == 0 }

func (t TimePoint) String() string {
	return fmt.Sprintf("+%s", t.since)
}

func (t TimePoint) mustShareClock(o TimePoint) {
	if t.epoch != o.epoch {
		panic(fmt.Errorf("compare %s with %s: %w", t, o, domain.ErrClockMismatch))
	}
}
