package parport

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/aelexs/psykit/internal/domain"
)

// fakeSerial embeds serial.Port so only the methods used need stubbing.
type fakeSerial struct {
	serial.Port
	written bytes.Buffer
	reply   []byte
	closed  bool
	writeFn func([]byte) error
}

func (f *fakeSerial) Write(p []byte) (int, error) {
	if f.writeFn != nil {
		if err := f.writeFn(p); err != nil {
			return 0, err
		}
	}
	return f.written.Write(p)
}

func (f *fakeSerial) Read(p []byte) (int, error) {
	n := copy(p, f.reply)
	f.reply = f.reply[n:]
	return n, nil
}

func (f *fakeSerial) SetReadTimeout(time.Duration) error { return nil }

func (f *fakeSerial) Close() error {
	f.closed = true
	return nil
}

func withFakeSerial(t *testing.T, fs *fakeSerial, openErr error) {
	t.Helper()
	prev := openSerial
	openSerial = func(_ string, mode *serial.Mode) (serial.Port, error) {
		assert.Equal(t, domain.DLPBaudRate, mode.BaudRate)
		assert.Equal(t, serial.NoParity, mode.Parity)
		if openErr != nil {
			return nil, openErr
		}
		return fs, nil
	}
	t.Cleanup(func() { openSerial = prev })
}

func TestDLPIO8Open(t *testing.T) {
	fs := &fakeSerial{reply: []byte{'Q'}}
	withFakeSerial(t, fs, nil)

	d := NewDLPIO8(domain.DLPBaudRate)
	require.NoError(t, d.Open(0))

	assert.Equal(t, []byte{dlpPing, dlpBinary, 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I'}, fs.written.Bytes())
	assert.True(t, d.IsOpen())
	assert.Equal(t, serialPath(0), d.Name())
}

func TestDLPIO8OpenBadPing(t *testing.T) {
	fs := &fakeSerial{reply: []byte{'X'}}
	withFakeSerial(t, fs, nil)

	d := NewDLPIO8(domain.DLPBaudRate)
	err := d.Open(0)

	var oe *OpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "ping", oe.Step)
	assert.ErrorIs(t, err, domain.ErrPortOpen)
	assert.True(t, fs.closed)
	assert.False(t, d.IsOpen())
}

func TestDLPIO8OpenDeviceMissing(t *testing.T) {
	missing := errors.New("no such device")
	withFakeSerial(t, nil, missing)

	err := NewDLPIO8(domain.DLPBaudRate).Open(3)
	assert.ErrorIs(t, err, domain.ErrPortOpen)
	assert.ErrorIs(t, err, missing)
}

func TestDLPIO8WriteSendsChangedLines(t *testing.T) {
	fs := &fakeSerial{reply: []byte{'Q'}}
	withFakeSerial(t, fs, nil)

	d := NewDLPIO8(domain.DLPBaudRate)
	require.NoError(t, d.Open(0))
	fs.written.Reset()

	require.NoError(t, d.Write(0b0000_0101))
	assert.Equal(t, "13", fs.written.String())
	fs.written.Reset()

	require.NoError(t, d.Write(0b1000_0100))
	assert.Equal(t, "Q8", fs.written.String())
	fs.written.Reset()

	require.NoError(t, d.Write(0b1000_0100))
	assert.Empty(t, fs.written.String(), "unchanged lines are not resent")

	require.NoError(t, d.WritePin(1, true))
	assert.Equal(t, "2", fs.written.String())
	assert.Equal(t, uint8(0b1000_0110), d.Pins())
}

func TestDLPIO8WriteError(t *testing.T) {
	fs := &fakeSerial{reply: []byte{'Q'}}
	withFakeSerial(t, fs, nil)

	d := NewDLPIO8(domain.DLPBaudRate)
	require.NoError(t, d.Open(0))

	unplugged := errors.New("device unplugged")
	fs.writeFn = func([]byte) error { return unplugged }
	err := d.Write(1)
	assert.ErrorIs(t, err, domain.ErrPortIO)
	assert.ErrorIs(t, err, unplugged)
	assert.Zero(t, d.Pins())
}

func TestDLPIO8OutputOnly(t *testing.T) {
	d := NewDLPIO8(domain.DLPBaudRate)
	assert.ErrorIs(t, d.SetDirection(In), domain.ErrPortDirection)
	require.NoError(t, d.SetDirection(Out))
	assert.ErrorIs(t, d.Write(1), domain.ErrPortClosed)
	_, err := d.Read()
	assert.ErrorIs(t, err, domain.ErrPortClosed)
	require.NoError(t, d.Close())
}

func TestDLPCommand(t *testing.T) {
	assert.Empty(t, dlpCommand(0x0F, 0x0F))
	assert.Equal(t, []byte("12345678"), dlpCommand(0x00, 0xFF))
	assert.Equal(t, []byte("QWERTYUI"), dlpCommand(0xFF, 0x00))
}
