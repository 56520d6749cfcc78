// Package sysiface declares the platform abstraction scripts run on top
// of: filesystem, GPIO, networking, and wall-clock access. Spec §6.1
// marks SystemInterface as explicitly out of scope for implementation —
// this package is the interface surface only, ported method-for-method
// from `original_source/src/SystemInterface.h`, `GPIOInterface.h`,
// `FS.h`, `TCP.h`, and `UDP.h`. A real build wires a platform-specific
// implementation in; internal/hostsys supplies a host/test stand-in.
package sysiface

import "time"

// IPAddr is a dotted-quad IPv4 address, addressable byte by byte the
// way the original's IPAddr::operator[] is used by its string parser.
type IPAddr [4]byte

// PinMode mirrors GPIOInterface::PinMode.
type PinMode int

const (
	PinOutput PinMode = iota
	PinOutputOpenDrain
	PinInput
	PinInputPullup
	PinInputPulldown
)

// PinTrigger mirrors GPIOInterface::Trigger.
type PinTrigger int

const (
	TriggerNone PinTrigger = iota
	TriggerRisingEdge
	TriggerFallingEdge
	TriggerBothEdges
	TriggerLow
	TriggerHigh
)

// LEDPin and PinCount mirror GPIOInterface's constants.
const (
	LEDPin   = 2
	PinCount = 17
)

// GPIO is the digital I/O surface a board exposes to scripts.
type GPIO interface {
	SetPinMode(pin uint8, mode PinMode) bool
	DigitalRead(pin uint8) bool
	DigitalWrite(pin uint8, level bool)
	OnInterrupt(pin uint8, trigger PinTrigger, handler func(pin uint8))
}

// FileOpenMode mirrors FS::FileOpenMode.
type FileOpenMode int

const (
	FileRead FileOpenMode = iota
	FileReadUpdate
	FileWrite
	FileWriteUpdate
	FileAppend
	FileAppendUpdate
)

// SeekWhence mirrors File::SeekWhence.
type SeekWhence int

const (
	SeekSet SeekWhence = iota
	SeekCur
	SeekEnd
)

// File is one open filesystem entry (FS.h's File, trimmed of its C
// buffered single-byte read/write helpers, which Go callers get for
// free from io.Reader/io.Writer wrapping Read/Write).
type File interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Seek(offset int32, whence SeekWhence) bool
	Tell() int32
	EOF() bool
	Close() error
}

// Directory is one open directory listing cursor (FS.h's Directory).
type Directory interface {
	Name() string
	Size() uint32
	Next() bool
	Close() error
}

// FileSystem is the storage surface a board exposes to scripts.
type FileSystem interface {
	Mount() bool
	Mounted() bool
	Unmount()
	Format() bool
	Open(name string, mode FileOpenMode) (File, error)
	OpenDirectory(name string) (Directory, error)
	Remove(name string) bool
	Rename(oldName, newName string) bool
	TotalSize() uint32
	TotalUsed() uint32
}

// TCPEvent mirrors TCPDelegate::Event.
type TCPEvent int

const (
	TCPConnected TCPEvent = iota
	TCPReconnected
	TCPDisconnected
	TCPReceivedData
	TCPSentData
	TCPError
)

// TCPDelegate receives connection lifecycle and data events, the Go
// analog of TCPDelegate's virtual TCPevent callback.
type TCPDelegate interface {
	TCPEvent(conn TCP, event TCPEvent, connectionID int16, data []byte)
}

// TCP is one listening or connecting TCP endpoint (TCP.h's TCP class).
// MaxConnections mirrors TCP::MaxConnections.
const MaxTCPConnections = 4

type TCP interface {
	Send(connectionID int16, data []byte)
	Disconnect(connectionID int16)
	Close() error
}

// UDPEvent mirrors UDPDelegate::Event.
type UDPEvent int

const (
	UDPDisconnected UDPEvent = iota
	UDPReceivedData
	UDPSentData
	UDPError
)

// UDPDelegate receives datagram lifecycle and data events.
type UDPDelegate interface {
	UDPEvent(conn UDP, event UDPEvent, data []byte)
}

// UDP is one bound UDP socket (UDP.h's UDP class).
type UDP interface {
	Send(ip IPAddr, port uint16, data []byte)
	Disconnect()
	Close() error
}

// SystemInterface is the full platform surface a script's host provides
// (SystemInterface.h): storage, GPIO, networking, device identity, and
// monotonic time. The task scheduler isn't part of this interface —
// internal/engine wires an internal/sched.Scheduler directly rather than
// routing it through SystemInterface::taskManager(), since every Engine
// owns exactly one. Exactly one SystemInterface implementation is live
// per Engine, mirroring the original's process-wide singleton without
// actually requiring one in Go.
type SystemInterface interface {
	FileSystem() FileSystem
	GPIO() GPIO
	CreateTCP(delegate TCPDelegate, port uint16, ip IPAddr) (TCP, error)
	CreateUDP(delegate UDPDelegate, port uint16) (UDP, error)
	SetDeviceName(name string)
	Printf(format string, args ...interface{})
	CurrentMicroseconds() int64
}

// Now is the monotonic clock source Options/engine code defaults to
// when a SystemInterface isn't wired yet; kept separate from the
// interface above since tests frequently want to fake only the clock.
var Now = time.Now
