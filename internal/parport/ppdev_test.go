package parport

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/psykit/internal/domain"
)

// fakeIoctler records requests and fails the one named in failOn.
type fakeIoctler struct {
	calls  []uint
	opened []string
	closed int
	failOn uint
	failOp string
	err    error
	data   uint8
	ints   map[uint]int
}

func newFakeIoctler() *fakeIoctler {
	return &fakeIoctler{ints: make(map[uint]int)}
}

func (f *fakeIoctler) fail(req uint) error {
	f.calls = append(f.calls, req)
	if f.failOn == req && f.err != nil {
		return f.err
	}
	return nil
}

func (f *fakeIoctler) open(path string) (int, error) {
	if f.failOp == "open" {
		return -1, f.err
	}
	f.opened = append(f.opened, path)
	return 3, nil
}

func (f *fakeIoctler) close(int) error {
	f.closed++
	return nil
}

func (f *fakeIoctler) call(_ int, req uint) error { return f.fail(req) }

func (f *fakeIoctler) getInt(_ int, req uint) (int, error) {
	return f.ints[req], f.fail(req)
}

func (f *fakeIoctler) setInt(_ int, req uint, v int) error {
	if err := f.fail(req); err != nil {
		return err
	}
	f.ints[req] = v
	return nil
}

func (f *fakeIoctler) getByte(_ int, req uint) (uint8, error) {
	return f.data, f.fail(req)
}

func (f *fakeIoctler) setByte(_ int, req uint, v uint8) error {
	if err := f.fail(req); err != nil {
		return err
	}
	f.data = v
	return nil
}

func newTestParport() (*Parport, *fakeIoctler) {
	sys := newFakeIoctler()
	return &Parport{sys: sys, fd: -1}, sys
}

func TestParportOpenSequence(t *testing.T) {
	p, sys := newTestParport()

	require.NoError(t, p.Open(0))
	assert.Equal(t, []string{"/dev/parport0"}, sys.opened)
	assert.Equal(t, []uint{ppClaim, ppGetMode, ppSetMode, ppSetFlags, ppDataDir}, sys.calls)
	assert.Equal(t, modeCompat, sys.ints[ppSetMode])
	assert.Equal(t, flagFastW|flagFastR, sys.ints[ppSetFlags])
	assert.Equal(t, dataForward, sys.ints[ppDataDir])
	assert.True(t, p.IsOpen())
	assert.Equal(t, "/dev/parport0", p.Name())
	assert.Equal(t, 0, p.Number())
}

func TestParportOpenKeepsCompatibilityMode(t *testing.T) {
	p, sys := newTestParport()
	sys.ints[ppGetMode] = modeCompat

	require.NoError(t, p.Open(0))
	assert.Equal(t, []uint{ppClaim, ppGetMode, ppSetFlags, ppDataDir}, sys.calls)
	assert.NotContains(t, sys.calls, uint(ppSetMode))
}

func TestParportOpenAppliesDirection(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.SetDirection(In))
	assert.Empty(t, sys.calls, "direction of a closed port is applied at open")

	require.NoError(t, p.Open(0))
	assert.Equal(t, dataReverse, sys.ints[ppDataDir])
	assert.Equal(t, 1, countCalls(sys.calls, ppDataDir))
}

func countCalls(calls []uint, req uint) int {
	n := 0
	for _, c := range calls {
		if c == req {
			n++
		}
	}
	return n
}

func TestParportOpenFailures(t *testing.T) {
	tests := []struct {
		step   string
		failOn uint
		failOp string
		closes int
	}{
		{"open device", 0, "open", 0},
		{"claim port", ppClaim, "", 1},
		{"get mode", ppGetMode, "", 1},
		{"set compatibility mode", ppSetMode, "", 1},
		{"set flags", ppSetFlags, "", 1},
		{"set data direction", ppDataDir, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			p, sys := newTestParport()
			sys.failOn = tt.failOn
			sys.failOp = tt.failOp
			sys.err = syscall.EBUSY

			err := p.Open(1)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrPortOpen)
			assert.ErrorIs(t, err, syscall.EBUSY)

			var oe *OpenError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.step, oe.Step)
			assert.Equal(t, "/dev/parport1", oe.Device)
			assert.Contains(t, err.Error(), syscall.EBUSY.Error())

			assert.False(t, p.IsOpen())
			assert.Equal(t, tt.closes, sys.closed)
		})
	}
}

func TestParportWriteBeforeOpen(t *testing.T) {
	p, sys := newTestParport()

	err := p.Write(0xFF)
	assert.ErrorIs(t, err, domain.ErrPortClosed)
	assert.Empty(t, sys.calls, "no I/O on a closed port")
	assert.Zero(t, p.Pins())
}

func TestParportWriteInputDirection(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.SetDirection(In))
	require.NoError(t, p.Open(0))
	assert.Equal(t, dataReverse, sys.ints[ppDataDir])
	sys.calls = nil

	assert.ErrorIs(t, p.Write(1), domain.ErrPortDirection)
	assert.Empty(t, sys.calls)
}

func TestParportWriteAndRead(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.Open(0))

	require.NoError(t, p.Write(0xA5))
	assert.Equal(t, uint8(0xA5), sys.data)
	assert.Equal(t, uint8(0xA5), p.Pins())

	require.NoError(t, p.WritePin(0, false))
	assert.Equal(t, uint8(0xA4), p.Pins())
	require.NoError(t, p.WritePin(1, true))
	assert.Equal(t, uint8(0xA6), p.Pins())
	assert.ErrorIs(t, p.WritePin(8, true), domain.ErrInvalidPin)

	_, err := p.Read()
	assert.ErrorIs(t, err, domain.ErrPortDirection)

	require.NoError(t, p.SetDirection(In))
	assert.Equal(t, dataReverse, sys.ints[ppDataDir])
	sys.data = 0x81
	v, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x81), v)

	high, err := p.ReadPin(7)
	require.NoError(t, err)
	assert.True(t, high)
	low, err := p.ReadPin(1)
	require.NoError(t, err)
	assert.False(t, low)
}

func TestParportWriteIOError(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.Open(0))
	sys.failOn = ppWData
	sys.err = syscall.EIO

	err := p.Write(1)
	assert.ErrorIs(t, err, domain.ErrPortIO)
	assert.ErrorIs(t, err, syscall.EIO)
	assert.Zero(t, p.Pins())
}

func TestParportCloseIdempotent(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.Close())
	assert.Empty(t, sys.calls)

	require.NoError(t, p.Open(0))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, uint(ppRelease), sys.calls[len(sys.calls)-1])
	assert.Equal(t, 1, sys.closed)
	assert.ErrorIs(t, p.Write(0), domain.ErrPortClosed)
}

func TestParportReopenClosesPrevious(t *testing.T) {
	p, sys := newTestParport()
	require.NoError(t, p.Open(0))
	require.NoError(t, p.Open(2))

	assert.Equal(t, []string{"/dev/parport0", "/dev/parport2"}, sys.opened)
	assert.Equal(t, 1, sys.closed)
	assert.Equal(t, 2, p.Number())
}

func TestParportInvalidNumber(t *testing.T) {
	p, sys := newTestParport()
	err := p.Open(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Empty(t, sys.opened)
}

func TestOpenErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := error(&OpenError{Device: "/dev/parport0", Step: "open device", Err: cause})
	assert.ErrorIs(t, err, domain.ErrPortOpen)
	assert.ErrorIs(t, err, cause)
	assert.True(t, domain.IsResourceError(err))
	assert.Equal(t, "open /dev/parport0: open device: permission denied", err.Error())
}
