package timingtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSourceAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewFakeSource(start)
	assert.Equal(t, start, s.Now())

	s.Advance(time.Second)
	assert.Equal(t, start.Add(time.Second), s.Now())

	s.Set(start)
	assert.Equal(t, start, s.Now())
}

func TestFakeSourceWait(t *testing.T) {
	ctx := context.Background()
	s := NewFakeSource(time.Unix(0, 0))

	require.NoError(t, s.Wait(ctx, 5*time.Millisecond, nil))
	assert.Equal(t, time.Unix(0, 0).Add(5*time.Millisecond), s.Now())
	assert.Equal(t, 5*time.Millisecond, s.Waited())

	wake := make(chan struct{}, 1)
	wake <- struct{}{}
	require.NoError(t, s.Wait(ctx, time.Hour, wake))
	assert.Equal(t, 5*time.Millisecond, s.Waited(), "pending wake-up must not advance time")

	assert.ErrorIs(t, s.Wait(ctx, -1, nil), ErrIdleWait)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, s.Wait(cctx, time.Millisecond, nil), context.Canceled)
}
