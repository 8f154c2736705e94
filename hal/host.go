//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// HostOptions configures the desktop HAL.
type HostOptions struct {
	// Out receives log lines. Defaults to os.Stdout.
	Out io.Writer
	// Now is the wall clock behind Time and the emulated RTC. Defaults to time.Now.
	Now func() time.Time
	// EEPROMPath persists the emulated EEPROM. Empty keeps it in memory.
	EEPROMPath string

	Width  int
	Height int
}

// Host is the desktop HAL: a simulated interrupt line, an emulated I2C bus with a DS3231
// and an AT24C32, and an in-memory framebuffer.
type Host struct {
	logger *hostLogger
	led    *hostLED
	fb     *hostFramebuffer
	t      *hostTime
	irq    *hostIRQ
	btn    *hostButton
	bus    *hostBus
	rtc    *hostRTC
	eeprom *hostEEPROM
}

// NewHost returns a host HAL implementation.
func NewHost(opts HostOptions) (*Host, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Width <= 0 {
		opts.Width = 320
	}
	if opts.Height <= 0 {
		opts.Height = 240
	}

	eeprom, err := newHostEEPROM(opts.EEPROMPath, hostEEPROMSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("host eeprom: %w", err)
	}
	rtc := newHostRTC(opts.Now)
	irq := &hostIRQ{}

	return &Host{
		logger: &hostLogger{w: opts.Out},
		led:    &hostLED{},
		fb:     newHostFramebuffer(opts.Width, opts.Height),
		t:      newHostTime(opts.Now),
		irq:    irq,
		btn:    &hostButton{irq: irq},
		bus:    newHostBus(rtc, eeprom),
		rtc:    rtc,
		eeprom: eeprom,
	}, nil
}

func (h *Host) Logger() Logger         { return h.logger }
func (h *Host) LED() LED               { return h.led }
func (h *Host) Display() Display       { return hostDisplay{fb: h.fb} }
func (h *Host) Time() Time             { return h.t }
func (h *Host) Interrupts() Interrupts { return h.irq }
func (h *Host) Button() Button         { return h.btn }
func (h *Host) I2C() drivers.I2C       { return h.bus }

// Raise runs isr as a simulated interrupt handler: interrupts are masked for its duration.
func (h *Host) Raise(isr func()) { h.irq.Raise(isr) }

// PressButton fires the button interrupt.
func (h *Host) PressButton() { h.btn.press() }

// LEDOn reports the current LED state.
func (h *Host) LEDOn() bool { return h.led.isOn() }

// SnapshotFramebuffer copies the RGB565 framebuffer into dst.
func (h *Host) SnapshotFramebuffer(dst []byte) { h.fb.snapshotRGB565(dst) }

// Close flushes and closes the EEPROM backing file.
func (h *Host) Close() error { return h.eeprom.close() }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu sync.Mutex
	on bool
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
}

func (l *hostLED) isOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
