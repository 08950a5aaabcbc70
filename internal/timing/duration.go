package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/aelexs/psykit/internal/domain"
)

// Duration is a signed interval in nanoseconds. Negative values are valid and
// express "before". The zero Duration means "immediately".
type Duration int64

// Common durations.
const (
	Nanosecond  Duration = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
)

// Microseconds returns a Duration of us microseconds.
func Microseconds(us int64) Duration { return Duration(us) * Microsecond }

// Milliseconds returns a Duration of ms milliseconds.
func Milliseconds(ms int64) Duration { return Duration(ms) * Millisecond }

// Seconds returns a Duration of s whole seconds.
func Seconds(s int64) Duration { return Duration(s) * Second }

// FromStd converts a time.Duration.
func FromStd(d time.Duration) Duration { return Duration(d) }

// FromSeconds converts fractional seconds, rounding to the nearest
// nanosecond. Values that do not fit return ErrDurationRange.
// float64(math.MaxInt64) is 2^63, one past the largest Duration.
func FromSeconds(s float64) (Duration, error) {
	ns := math.Round(s * float64(Second))
	if math.IsNaN(ns) || ns >= math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("%g s: %w", s, domain.ErrDurationRange)
	}
	return Duration(ns), nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Add returns d + o.
func (d Duration) Add(o Duration) Duration { return d + o }

// Sub returns d - o.
func (d Duration) Sub(o Duration) Duration { return d - o }

// Mul returns d scaled by n.
func (d Duration) Mul(n int64) Duration { return d * Duration(n) }

// Div returns d divided by n, truncated toward zero.
func (d Duration) Div(n int64) Duration { return d / Duration(n) }

// DivDuration returns how many whole o fit in d.
func (d Duration) DivDuration(o Duration) int64 { return int64(d / o) }

// Microseconds returns the duration as whole microseconds, truncated.
func (d Duration) Microseconds() int64 { return int64(d / Microsecond) }

// Milliseconds returns the duration as whole milliseconds, truncated.
func (d Duration) Milliseconds() int64 { return int64(d / Millisecond) }

// SecondsFloat returns the duration in seconds.
func (d Duration) SecondsFloat() float64 { return float64(d) / float64(Second) }

// Compare returns -1, 0 or +1.
func (d Duration) Compare(o Duration) int {
	switch {
	case d < o:
		return -1
	case d > o:
		return 1
	default:
		return 0
	}
}

// Abs returns the absolute value of d.
func (d Duration) Abs() Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (d Duration) String() string { return time.Duration(d).String() }
