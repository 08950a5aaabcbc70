package parport

import (
	"fmt"
	"runtime"

	"go.bug.st/serial"

	"github.com/aelexs/psykit/internal/domain"
)

// DLP-IO8-G command bytes.
const (
	dlpPing   = 0x27 // '
	dlpPong   = 'Q'
	dlpBinary = 0x5C // \
)

var (
	dlpSet   = [domain.NumPins]byte{'1', '2', '3', '4', '5', '6', '7', '8'}
	dlpClear = [domain.NumPins]byte{'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I'}
)

// openSerial is replaced in tests.
var openSerial = serial.Open

// DLPIO8 drives the eight lines of a DLP-IO8-G USB board. Only output is
// supported.
type DLPIO8 struct {
	lines
	baud int
	port serial.Port
}

// NewDLPIO8 returns an unopened DLP-IO8-G port using the given baud rate.
func NewDLPIO8(baud int) *DLPIO8 {
	return &DLPIO8{baud: baud}
}

func serialPath(num int) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("COM%d", num+1)
	}
	return fmt.Sprintf("/dev/ttyUSB%d", num)
}

// Open implements Port. After the ping handshake and the switch to binary
// mode all lines are driven low.
func (d *DLPIO8) Open(num int) error {
	if err := checkNumber(num); err != nil {
		return err
	}
	if err := d.Close(); err != nil {
		return err
	}

	dev := serialPath(num)
	fail := func(step string, err error) error {
		return &OpenError{Device: dev, Step: step, Err: err}
	}

	port, err := openSerial(dev, &serial.Mode{
		BaudRate: d.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fail("open device", err)
	}
	abort := func(step string, err error) error {
		_ = port.Close()
		return fail(step, err)
	}

	if err := port.SetReadTimeout(domain.DLPPingTimeout); err != nil {
		return abort("set read timeout", err)
	}
	if _, err := port.Write([]byte{dlpPing}); err != nil {
		return abort("ping", err)
	}
	buf := make([]byte, 1)
	n, err := port.Read(buf)
	if err != nil {
		return abort("ping", err)
	}
	if n != 1 || buf[0] != dlpPong {
		return abort("ping", fmt.Errorf("unexpected reply %q", buf[:n]))
	}
	if _, err := port.Write([]byte{dlpBinary}); err != nil {
		return abort("binary mode", err)
	}
	if _, err := port.Write(dlpClear[:]); err != nil {
		return abort("clear lines", err)
	}

	d.port = port
	d.name = dev
	d.num = num
	d.pins = 0
	d.open = true
	return nil
}

// Close implements Port.
func (d *DLPIO8) Close() error {
	if !d.open {
		return nil
	}
	d.open = false
	port := d.port
	d.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("close %s: %w: %w", d.name, domain.ErrPortIO, err)
	}
	return nil
}

// Write implements Port. Only lines that change are sent.
func (d *DLPIO8) Write(mask uint8) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	cmd := dlpCommand(d.pins, mask)
	if len(cmd) == 0 {
		return nil
	}
	if _, err := d.port.Write(cmd); err != nil {
		return fmt.Errorf("write %s: %w: %w", d.name, domain.ErrPortIO, err)
	}
	d.pins = mask
	return nil
}

// dlpCommand returns the set/clear bytes that turn from into to.
func dlpCommand(from, to uint8) []byte {
	changed := from ^ to
	var cmd []byte
	for pin := 0; pin < domain.NumPins; pin++ {
		bit := uint8(1) << pin
		if changed&bit == 0 {
			continue
		}
		if to&bit != 0 {
			cmd = append(cmd, dlpSet[pin])
		} else {
			cmd = append(cmd, dlpClear[pin])
		}
	}
	return cmd
}

// WritePin implements Port.
func (d *DLPIO8) WritePin(pin int, level bool) error { return writePin(d, pin, level) }

// Read implements Port. The board is driven as output only.
func (d *DLPIO8) Read() (uint8, error) {
	if err := d.checkRead(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("read %s: %w", d.name, domain.ErrPortDirection)
}

// ReadPin implements Port.
func (d *DLPIO8) ReadPin(pin int) (bool, error) { return readPin(d, pin) }

// SetDirection implements Port. Only Out is accepted.
func (d *DLPIO8) SetDirection(dir Direction) error {
	if dir != Out {
		return fmt.Errorf("set direction %s on %s: %w", dir, d.label(), domain.ErrPortDirection)
	}
	return nil
}

var _ Port = (*DLPIO8)(nil)
