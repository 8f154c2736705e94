package hal

import (
	"errors"

	"tinygo.org/x/drivers"
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

var ErrNotImplemented = errors.New("not implemented")

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
	// FillRectRGB fills the rectangle clipped to the framebuffer bounds.
	FillRectRGB(x, y, w, h int, r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Time provides a free-running millisecond counter.
//
// The counter wraps; compare values with subtraction.
type Time interface {
	Millis() uint32
}

// Interrupts is the global interrupt mask.
//
// Disable returns the previous state which must be handed back to Restore.
type Interrupts interface {
	Disable() uintptr
	Restore(state uintptr)
}

// Button delivers presses of the board button.
//
// The isr runs in interrupt context with interrupts masked. It must not block and must
// post with kernel.InterruptContext.
type Button interface {
	OnPress(isr func())
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Time() Time
	Interrupts() Interrupts
	Button() Button
	I2C() drivers.I2C
}
