package hal

import (
	"context"
	"errors"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var (
	ErrNotImplemented = errors.New("not implemented")
	ErrNotConnected   = errors.New("not connected")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a base tick stream of one tick per millisecond.
type Time interface {
	Ticks() <-chan uint64
}

// Serial is the diagnostic byte sink.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Client is a connected byte stream to a remote peer.
//
// Read never blocks for longer than it takes to return what is already
// buffered; callers poll Available first.
type Client interface {
	Connect(ctx context.Context) error
	Connected() bool
	Available() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Stop() error
}

// Network opens byte-stream clients.
type Network interface {
	Client(addr string) Client
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Display() Display
	Time() Time
	Serial() Serial
	Network() Network
}
