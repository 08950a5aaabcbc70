package timing_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/psykit/internal/domain"
	"github.com/aelexs/psykit/internal/timing"
	"github.com/aelexs/psykit/internal/timing/timingtest"
)

func TestDurationConstructors(t *testing.T) {
	tests := []struct {
		name string
		got  timing.Duration
		want time.Duration
	}{
		{"microseconds", timing.Microseconds(1500), 1500 * time.Microsecond},
		{"milliseconds", timing.Milliseconds(5), 5 * time.Millisecond},
		{"seconds", timing.Seconds(2), 2 * time.Second},
		{"zero", timing.Milliseconds(0), 0},
		{"negative", timing.Milliseconds(-3), -3 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.Std())
			assert.Equal(t, tt.got, timing.FromStd(tt.want))
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	d := timing.Microseconds(2500)
	assert.Equal(t, int64(2500), d.Microseconds())
	assert.Equal(t, int64(2), d.Milliseconds())
	assert.InDelta(t, 0.0025, d.SecondsFloat(), 1e-12)
	assert.Equal(t, int64(2), d.DivDuration(timing.Millisecond))
	assert.Equal(t, timing.Microseconds(1250), d.Div(2))
	assert.Equal(t, timing.Microseconds(7500), d.Mul(3))
	assert.Equal(t, d, d.Mul(-1).Abs())
}

func TestDurationCompare(t *testing.T) {
	a, b := timing.Milliseconds(1), timing.Milliseconds(2)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(timing.Microseconds(1000)))
}

func TestFromSeconds(t *testing.T) {
	d, err := timing.FromSeconds(0.25)
	require.NoError(t, err)
	assert.Equal(t, timing.Milliseconds(250), d)

	d, err = timing.FromSeconds(-1.5)
	require.NoError(t, err)
	assert.Equal(t, timing.Milliseconds(-1500), d)

	for _, bad := range []float64{1e12, -1e12, math.NaN(), math.Inf(1), 9.223372036854775807e9} {
		_, err := timing.FromSeconds(bad)
		assert.True(t, errors.Is(err, domain.ErrDurationRange), "value %g", bad)
	}
}

func TestClockNowAdvances(t *testing.T) {
	clock, src := timingtest.NewClock()

	t0 := clock.Now()
	assert.True(t, t0.Equal(clock.Zero()))

	src.Advance(3 * time.Millisecond)
	t1 := clock.Now()
	assert.Equal(t, timing.Milliseconds(3), t1.Sub(t0))
	assert.Equal(t, timing.Milliseconds(3), t1.SinceStart())
	assert.True(t, t0.Before(t1))
	assert.True(t, t1.After(t0))
	assert.Equal(t, timing.Milliseconds(-3), clock.Until(t0))
}

func TestSystemClockMonotonic(t *testing.T) {
	clock := timing.NewClock()
	prev := clock.Now()
	for i := 0; i < 1000; i++ {
		now := clock.Now()
		require.False(t, now.Before(prev))
		prev = now
	}
}

func TestTimePointArithmetic(t *testing.T) {
	clock, src := timingtest.NewClock()
	t1 := clock.Now()
	src.Advance(1234 * time.Microsecond)
	t2 := clock.Now()

	d1 := timing.Milliseconds(5)
	d2 := timing.Microseconds(-700)

	t.Run("associative", func(t *testing.T) {
		assert.True(t, t1.Add(d1).Add(d2).Equal(t1.Add(d1.Add(d2))))
	})
	t.Run("difference round trip", func(t *testing.T) {
		assert.True(t, t1.Add(t2.Sub(t1)).Equal(t2))
	})
	t.Run("sub duration", func(t *testing.T) {
		assert.True(t, t2.SubDuration(t2.Sub(t1)).Equal(t1))
	})
	t.Run("zero duration", func(t *testing.T) {
		assert.True(t, t1.Add(0).Equal(t1))
	})
}

func TestClockOwnership(t *testing.T) {
	a, _ := timingtest.NewClock()
	b, _ := timingtest.NewClock()

	ta, tb := a.Now(), b.Now()
	assert.True(t, a.Owns(ta))
	assert.False(t, a.Owns(tb))
	assert.False(t, ta.SameClock(tb))
	assert.True(t, ta.SameClock(ta.Add(timing.Second)))

	assert.PanicsWithError(t, "compare +0s with +0s: "+domain.ErrClockMismatch.Error(), func() {
		_ = ta.Sub(tb)
	})
	assert.Panics(t, func() { _ = ta.Before(tb) })
}

func TestTimePointIsZero(t *testing.T) {
	var zero timing.TimePoint
	assert.True(t, zero.IsZero())

	clock, _ := timingtest.NewClock()
	assert.False(t, clock.Now().IsZero())
}
