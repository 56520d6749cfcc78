// Package hostsys is a minimal, host-process SystemInterface good
// enough to drive internal/engine's end-to-end tests against: it writes
// Printf to stdout, reports a real monotonic clock, and otherwise
// returns "not supported" for the I/O surfaces spec §6.1 puts out of
// scope (filesystem, GPIO, TCP, UDP). It is not meant to back a real
// device — see cmd/m8rc for the CLI entry point that uses it.
package hostsys

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmarrin/m8rscript-sub000/internal/sysiface"
)

// ErrNotSupported is returned by every hostsys method that stands in
// for a real platform I/O surface this host doesn't implement.
var ErrNotSupported = errors.New("hostsys: not supported")

// Host is a dev-machine SystemInterface: enough to run scripts that
// don't touch the filesystem, GPIO, or the network.
type Host struct {
	deviceName string
	start      time.Time
}

// New returns a ready-to-use Host.
func New() *Host {
	return &Host{start: time.Now()}
}

var _ sysiface.SystemInterface = (*Host)(nil)

func (h *Host) FileSystem() sysiface.FileSystem { return noFS{} }
func (h *Host) GPIO() sysiface.GPIO             { return noGPIO{} }

func (h *Host) CreateTCP(sysiface.TCPDelegate, uint16, sysiface.IPAddr) (sysiface.TCP, error) {
	return nil, ErrNotSupported
}

func (h *Host) CreateUDP(sysiface.UDPDelegate, uint16) (sysiface.UDP, error) {
	return nil, ErrNotSupported
}

func (h *Host) SetDeviceName(name string) { h.deviceName = name }
func (h *Host) DeviceName() string        { return h.deviceName }

func (h *Host) Printf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

func (h *Host) CurrentMicroseconds() int64 {
	return time.Since(h.start).Microseconds()
}

// noFS rejects every FileSystem call; mount()/open() always fail the
// way they would on a board with no storage attached.
type noFS struct{}

func (noFS) Mount() bool    { return false }
func (noFS) Mounted() bool  { return false }
func (noFS) Unmount()       {}
func (noFS) Format() bool   { return false }
func (noFS) TotalSize() uint32 { return 0 }
func (noFS) TotalUsed() uint32 { return 0 }
func (noFS) Remove(string) bool          { return false }
func (noFS) Rename(string, string) bool  { return false }
func (noFS) Open(string, sysiface.FileOpenMode) (sysiface.File, error) {
	return nil, ErrNotSupported
}
func (noFS) OpenDirectory(string) (sysiface.Directory, error) {
	return nil, ErrNotSupported
}

// noGPIO rejects every pin operation; a host process has no pins.
type noGPIO struct{}

func (noGPIO) SetPinMode(uint8, sysiface.PinMode) bool { return false }
func (noGPIO) DigitalRead(uint8) bool                  { return false }
func (noGPIO) DigitalWrite(uint8, bool)                {}
func (noGPIO) OnInterrupt(uint8, sysiface.PinTrigger, func(uint8)) {}
