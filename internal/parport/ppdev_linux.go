//go:build linux

package parport

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type unixIoctler struct{}

func platformIoctler() ioctler { return unixIoctler{} }

func (unixIoctler) open(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
}

func (unixIoctler) close(fd int) error { return unix.Close(fd) }

func (unixIoctler) call(fd int, req uint) error {
	return ioctlPtr(fd, req, nil)
}

func (unixIoctler) getInt(fd int, req uint) (int, error) {
	return unix.IoctlGetInt(fd, req)
}

func (unixIoctler) setInt(fd int, req uint, v int) error {
	return unix.IoctlSetPointerInt(fd, req, v)
}

func (unixIoctler) getByte(fd int, req uint) (uint8, error) {
	var b uint8
	err := ioctlPtr(fd, req, unsafe.Pointer(&b))
	return b, err
}

func (unixIoctler) setByte(fd int, req uint, v uint8) error {
	return ioctlPtr(fd, req, unsafe.Pointer(&v))
}

func ioctlPtr(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
