//go:build tinygo && baremetal

package hal

import (
	"machine"

	"tinygo.org/x/drivers"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	t      *tinyGoTime
	irq    tinyGoIRQ
	btn    *pinButton
	i2c    drivers.I2C
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// I2C: I2C0 on GP4 (SDA) / GP5 (SCL), 100 kHz, DS3231 + AT24C32 module.
// Button: GP14 to ground, internal pull-up.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	bus := machine.I2C0
	var i2c drivers.I2C = nullI2C{}
	if err := bus.Configure(machine.I2CConfig{
		SDA:       machine.GP4,
		SCL:       machine.GP5,
		Frequency: 100_000,
	}); err == nil {
		i2c = bus
	}

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
		t:      &tinyGoTime{},
		btn:    newPinButton(machine.GP14),
		i2c:    i2c,
	}
}

func (h *tinyGoHAL) Logger() Logger         { return h.logger }
func (h *tinyGoHAL) LED() LED               { return h.led }
func (h *tinyGoHAL) Display() Display       { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Time() Time             { return h.t }
func (h *tinyGoHAL) Interrupts() Interrupts { return h.irq }
func (h *tinyGoHAL) Button() Button         { return h.btn }
func (h *tinyGoHAL) I2C() drivers.I2C       { return h.i2c }
