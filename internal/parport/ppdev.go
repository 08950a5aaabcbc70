package parport

import (
	"fmt"

	"github.com/aelexs/psykit/internal/domain"
)

// ppdev ioctl requests from <linux/ppdev.h>.
const (
	ppSetMode   = 0x40047080 // _IOW('p', 0x80, int)
	ppRData     = 0x80017085 // _IOR('p', 0x85, unsigned char)
	ppWData     = 0x40017086 // _IOW('p', 0x86, unsigned char)
	ppClaim     = 0x0000708b // _IO('p', 0x8b)
	ppRelease   = 0x0000708c // _IO('p', 0x8c)
	ppDataDir   = 0x40047090 // _IOW('p', 0x90, int)
	ppGetMode   = 0x80047098 // _IOR('p', 0x98, int)
	ppSetFlags  = 0x4004709b // _IOW('p', 0x9b, int)
	modeCompat  = 1 << 8     // IEEE1284_MODE_COMPAT
	flagFastW   = 1 << 2     // PP_FASTWRITE
	flagFastR   = 1 << 3     // PP_FASTREAD
	dataForward = 0
	dataReverse = 1
)

// ioctler is the subset of device syscalls used by Parport.
type ioctler interface {
	open(path string) (int, error)
	close(fd int) error
	// call issues an ioctl without an argument.
	call(fd int, req uint) error
	getInt(fd int, req uint) (int, error)
	setInt(fd int, req uint, v int) error
	getByte(fd int, req uint) (uint8, error)
	setByte(fd int, req uint, v uint8) error
}

// Parport is a PC parallel port accessed through the Linux ppdev driver at
// /dev/parportN.
type Parport struct {
	lines
	sys ioctler
	fd  int
}

// NewParport returns an unopened ppdev port.
func NewParport() *Parport {
	return &Parport{sys: platformIoctler(), fd: -1}
}

func devicePath(num int) string {
	return fmt.Sprintf("/dev/parport%d", num)
}

// Open implements Port. Each step of the ppdev handshake that fails is
// reported as an *OpenError.
func (p *Parport) Open(num int) error {
	if err := checkNumber(num); err != nil {
		return err
	}
	if err := p.Close(); err != nil {
		return err
	}

	dev := devicePath(num)
	fail := func(step string, err error) error {
		return &OpenError{Device: dev, Step: step, Err: err}
	}

	fd, err := p.sys.open(dev)
	if err != nil {
		return fail("open device", err)
	}
	if err := p.sys.call(fd, ppClaim); err != nil {
		_ = p.sys.close(fd)
		return fail("claim port", err)
	}
	abort := func(step string, err error) error {
		_ = p.sys.call(fd, ppRelease)
		_ = p.sys.close(fd)
		return fail(step, err)
	}

	mode, err := p.sys.getInt(fd, ppGetMode)
	if err != nil {
		return abort("get mode", err)
	}
	if mode != modeCompat {
		if err := p.sys.setInt(fd, ppSetMode, modeCompat); err != nil {
			return abort("set compatibility mode", err)
		}
	}
	if err := p.sys.setInt(fd, ppSetFlags, flagFastW|flagFastR); err != nil {
		return abort("set flags", err)
	}
	if err := p.sys.setInt(fd, ppDataDir, dataDir(p.dir)); err != nil {
		return abort("set data direction", err)
	}

	p.fd = fd
	p.name = dev
	p.num = num
	p.open = true
	return nil
}

func dataDir(d Direction) int {
	if d == In {
		return dataReverse
	}
	return dataForward
}

// Close implements Port.
func (p *Parport) Close() error {
	if !p.open {
		return nil
	}
	fd := p.fd
	p.open = false
	p.fd = -1

	relErr := p.sys.call(fd, ppRelease)
	closeErr := p.sys.close(fd)
	if relErr != nil {
		return fmt.Errorf("release %s: %w: %w", p.name, domain.ErrPortIO, relErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w: %w", p.name, domain.ErrPortIO, closeErr)
	}
	return nil
}

// Write implements Port.
func (p *Parport) Write(mask uint8) error {
	if err := p.checkWrite(); err != nil {
		return err
	}
	if err := p.sys.setByte(p.fd, ppWData, mask); err != nil {
		return fmt.Errorf("write %s: %w: %w", p.name, domain.ErrPortIO, err)
	}
	p.pins = mask
	return nil
}

// WritePin implements Port.
func (p *Parport) WritePin(pin int, level bool) error { return writePin(p, pin, level) }

// Read implements Port.
func (p *Parport) Read() (uint8, error) {
	if err := p.checkRead(); err != nil {
		return 0, err
	}
	v, err := p.sys.getByte(p.fd, ppRData)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w: %w", p.name, domain.ErrPortIO, err)
	}
	p.pins = v
	return v, nil
}

// ReadPin implements Port.
func (p *Parport) ReadPin(pin int) (bool, error) { return readPin(p, pin) }

// SetDirection implements Port.
func (p *Parport) SetDirection(d Direction) error {
	if d != Out && d != In {
		return fmt.Errorf("direction %d: %w", int(d), domain.ErrInvalidConfig)
	}
	if p.open {
		if err := p.sys.setInt(p.fd, ppDataDir, dataDir(d)); err != nil {
			return fmt.Errorf("set direction %s: %w: %w", p.name, domain.ErrPortIO, err)
		}
	}
	p.dir = d
	return nil
}

var _ Port = (*Parport)(nil)
