// Package parport drives the digital output lines used to send trigger
// codes to recording equipment: a PC parallel port through Linux ppdev, a
// DLP-IO8-G USB board over a serial line, or an in-memory port for dry runs.
package parport

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
)

// Direction is the data direction of a port.
type Direction int

const (
	Out Direction = iota
	In
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts "out"/"output" and "in"/"input".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out", "output":
		return Out, nil
	case "in", "input":
		return In, nil
	}
	return 0, fmt.Errorf("direction %q: %w", s, domain.ErrInvalidConfig)
}

// Port is a set of eight digital data lines. Implementations are not safe
// for concurrent use.
type Port interface {
	// Open closes any device already held and opens port number num.
	Open(num int) error
	// Close releases the device. Closing a closed port is a no-op.
	Close() error
	IsOpen() bool

	// Write drives the lines to mask. It fails with domain.ErrPortClosed or
	// domain.ErrPortDirection without touching the device.
	Write(mask uint8) error
	// WritePin drives a single line, keeping the others.
	WritePin(pin int, level bool) error
	Read() (uint8, error)
	ReadPin(pin int) (bool, error)

	// Pins returns the last value written or read.
	Pins() uint8
	// Name returns the device name, empty before the first Open.
	Name() string
	Number() int
	Direction() Direction
	// SetDirection changes the data direction, applying it to the device
	// immediately if open.
	SetDirection(d Direction) error
}

// OpenError reports which step of opening a device failed.
// errors.Is matches both domain.ErrPortOpen and the underlying OS error.
type OpenError struct {
	Device string
	Step   string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %s: %v", e.Device, e.Step, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{domain.ErrPortOpen, e.Err}
}

// lines holds the bookkeeping shared by all port implementations.
type lines struct {
	name string
	num  int
	dir  Direction
	pins uint8
	open bool
}

func (l *lines) IsOpen() bool         { return l.open }
func (l *lines) Pins() uint8          { return l.pins }
func (l *lines) Name() string         { return l.name }
func (l *lines) Number() int          { return l.num }
func (l *lines) Direction() Direction { return l.dir }

func (l *lines) checkWrite() error {
	if !l.open {
		return fmt.Errorf("write %s: %w", l.label(), domain.ErrPortClosed)
	}
	if l.dir != Out {
		return fmt.Errorf("write %s: %w", l.label(), domain.ErrPortDirection)
	}
	return nil
}

func (l *lines) checkRead() error {
	if !l.open {
		return fmt.Errorf("read %s: %w", l.label(), domain.ErrPortClosed)
	}
	if l.dir != In {
		return fmt.Errorf("read %s: %w", l.label(), domain.ErrPortDirection)
	}
	return nil
}

func (l *lines) label() string {
	if l.name == "" {
		return "port"
	}
	return l.name
}

func checkPin(pin int) error {
	if pin < 0 || pin >= domain.NumPins {
		return fmt.Errorf("pin %d: %w", pin, domain.ErrInvalidPin)
	}
	return nil
}

func checkNumber(num int) error {
	if num < 0 || num > domain.MaxPortNumber {
		return fmt.Errorf("port number %d: %w", num, domain.ErrInvalidConfig)
	}
	return nil
}

func setBit(mask uint8, pin int, level bool) uint8 {
	if level {
		return mask | 1<<pin
	}
	return mask &^ (1 << pin)
}

// writePin and readPin implement the single-line operations on top of a
// port's Write and Read.
func writePin(p Port, pin int, level bool) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	return p.Write(setBit(p.Pins(), pin, level))
}

func readPin(p Port, pin int) (bool, error) {
	if err := checkPin(pin); err != nil {
		return false, err
	}
	v, err := p.Read()
	if err != nil {
		return false, err
	}
	return v&(1<<pin) != 0, nil
}

// New returns an unopened port for driver. baud applies to serial drivers;
// zero selects domain.DLPBaudRate.
func New(driver domain.Driver, baud int) (Port, error) {
	switch driver {
	case domain.DriverPPDev:
		return NewParport(), nil
	case domain.DriverDLPIO8:
		if baud == 0 {
			baud = domain.DLPBaudRate
		}
		return NewDLPIO8(baud), nil
	case domain.DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("driver %q: %w", driver, domain.ErrInvalidConfig)
}
