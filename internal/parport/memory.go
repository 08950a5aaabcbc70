package parport

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
)

// Memory is a Port without hardware. It records every write, which makes it
// useful for dry runs and tests.
type Memory struct {
	lines
	writes  []uint8
	input   uint8
	failErr error
}

// NewMemory returns an unopened in-memory port.
func NewMemory() *Memory {
	return &Memory{}
}

// Open implements Port.
func (m *Memory) Open(num int) error {
	if err := checkNumber(num); err != nil {
		return err
	}
	m.name = fmt.Sprintf("memory%d", num)
	m.num = num
	m.pins = 0
	m.open = true
	return nil
}

// Close implements Port.
func (m *Memory) Close() error {
	m.open = false
	return nil
}

// Write implements Port.
func (m *Memory) Write(mask uint8) error {
	if err := m.checkWrite(); err != nil {
		return err
	}
	if m.failErr != nil {
		return fmt.Errorf("write %s: %w: %w", m.name, domain.ErrPortIO, m.failErr)
	}
	m.writes = append(m.writes, mask)
	m.pins = mask
	return nil
}

// WritePin implements Port.
func (m *Memory) WritePin(pin int, level bool) error { return writePin(m, pin, level) }

// Read implements Port, returning the value set with SetInput.
func (m *Memory) Read() (uint8, error) {
	if err := m.checkRead(); err != nil {
		return 0, err
	}
	m.pins = m.input
	return m.input, nil
}

// ReadPin implements Port.
func (m *Memory) ReadPin(pin int) (bool, error) { return readPin(m, pin) }

// SetDirection implements Port.
func (m *Memory) SetDirection(d Direction) error {
	if d != Out && d != In {
		return fmt.Errorf("direction %d: %w", int(d), domain.ErrInvalidConfig)
	}
	m.dir = d
	return nil
}

// Writes returns every value written since the port was created.
func (m *Memory) Writes() []uint8 {
	return append([]uint8(nil), m.writes...)
}

// SetInput sets the value returned by Read.
func (m *Memory) SetInput(v uint8) { m.input = v }

// FailWrites makes subsequent writes fail with err; nil restores them.
func (m *Memory) FailWrites(err error) { m.failErr = err }

var _ Port = (*Memory)(nil)
