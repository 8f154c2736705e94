//go:build tinygo && baremetal

package hal

import (
	"machine"
	"runtime/interrupt"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoTime struct {
	start time.Time
}

func (t *tinyGoTime) Millis() uint32 {
	if t.start.IsZero() {
		t.start = time.Now()
	}
	return uint32(time.Since(t.start) / time.Millisecond)
}

// tinyGoIRQ is the global interrupt enable.
type tinyGoIRQ struct{}

func (tinyGoIRQ) Disable() uintptr      { return uintptr(interrupt.Disable()) }
func (tinyGoIRQ) Restore(state uintptr) { interrupt.Restore(interrupt.State(state)) }
func (tinyGoIRQ) InInterrupt() bool     { return interrupt.In() }

type pinButton struct {
	pin machine.Pin
}

func newPinButton(pin machine.Pin) *pinButton {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &pinButton{pin: pin}
}

func (b *pinButton) OnPress(isr func()) {
	if isr == nil {
		_ = b.pin.SetInterrupt(0, nil)
		return
	}
	_ = b.pin.SetInterrupt(machine.PinFalling, func(machine.Pin) { isr() })
}

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }
