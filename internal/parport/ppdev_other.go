//go:build !linux

package parport

import "github.com/aelexs/psykit/internal/domain"

type unsupportedIoctler struct{}

func platformIoctler() ioctler { return unsupportedIoctler{} }

func (unsupportedIoctler) open(string) (int, error)         { return -1, domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) close(int) error                  { return domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) call(int, uint) error             { return domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) getInt(int, uint) (int, error)    { return 0, domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) setInt(int, uint, int) error      { return domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) getByte(int, uint) (uint8, error) { return 0, domain.ErrUnsupportedPlatform }
func (unsupportedIoctler) setByte(int, uint, uint8) error   { return domain.ErrUnsupportedPlatform }
