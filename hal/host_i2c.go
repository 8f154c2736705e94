//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// I2C addresses of the emulated devices.
const (
	RTCAddress    = 0x68
	EEPROMAddress = 0x57
)

var ErrNoDevice = errors.New("i2c: no device at address")

type i2cTarget interface {
	tx(w, r []byte) error
}

// hostBus is an in-memory I2C bus. Transactions are serialized.
type hostBus struct {
	mu      sync.Mutex
	devices map[uint16]i2cTarget
}

func newHostBus(rtc *hostRTC, eeprom *hostEEPROM) *hostBus {
	return &hostBus{devices: map[uint16]i2cTarget{
		RTCAddress:    rtc,
		EEPROMAddress: eeprom,
	}}
}

func (b *hostBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("%w %#x", ErrNoDevice, addr)
	}
	return d.tx(w, r)
}

const (
	rtcRegSeconds = 0x00
	rtcRegHours   = 0x02
	rtcRegYear    = 0x06
	rtcRegStatus  = 0x0F
	rtcRegTempMSB = 0x11
	rtcRegCount   = 0x13

	rtcHour12   = 0x40
	rtcHourPM   = 0x20
	rtcCentury  = 0x80
	rtcStatusOK = 0x00
)

// hostRTC is a DS3231 register file. The time registers run from the host clock: a write
// to them latches a new base time, a read renders base plus elapsed host time.
type hostRTC struct {
	now   func() time.Time
	regs  [rtcRegCount]byte
	base  time.Time
	setAt time.Time
}

func newHostRTC(now func() time.Time) *hostRTC {
	t := now()
	r := &hostRTC{now: now, base: t.UTC().Truncate(time.Second), setAt: t}
	r.regs[rtcRegStatus] = rtcStatusOK
	r.regs[rtcRegTempMSB] = 25
	return r
}

func (c *hostRTC) tx(w, r []byte) error {
	if len(w) == 0 {
		return errors.New("ds3231: empty write")
	}
	reg := int(w[0])
	if reg >= rtcRegCount {
		return fmt.Errorf("ds3231: register %#x out of range", reg)
	}

	if data := w[1:]; len(data) > 0 {
		touched := false
		for i, v := range data {
			a := (reg + i) % rtcRegCount
			c.regs[a] = v
			if a <= rtcRegYear {
				touched = true
			}
		}
		if touched {
			c.latch()
		}
	}

	if len(r) > 0 {
		c.render()
		for i := range r {
			r[i] = c.regs[(reg+i)%rtcRegCount]
		}
	}
	return nil
}

// current returns the time the RTC is showing.
func (c *hostRTC) current() time.Time {
	return c.base.Add(c.now().Sub(c.setAt)).Truncate(time.Second)
}

func (c *hostRTC) render() {
	t := c.current()
	c.regs[0] = toBCD(t.Second())
	c.regs[1] = toBCD(t.Minute())
	if c.regs[rtcRegHours]&rtcHour12 != 0 {
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		v := rtcHour12 | toBCD(h)
		if t.Hour() >= 12 {
			v |= rtcHourPM
		}
		c.regs[rtcRegHours] = v
	} else {
		c.regs[rtcRegHours] = toBCD(t.Hour())
	}
	c.regs[3] = toBCD(int(t.Weekday()))
	c.regs[4] = toBCD(t.Day())
	year := t.Year() - 2000
	month := toBCD(int(t.Month()))
	if year >= 100 {
		year -= 100
		month |= rtcCentury
	}
	c.regs[5] = month
	c.regs[6] = toBCD(year)
}

func (c *hostRTC) latch() {
	sec := fromBCD(c.regs[0] & 0x7F)
	minute := fromBCD(c.regs[1] & 0x7F)
	hv := c.regs[rtcRegHours]
	var hour int
	if hv&rtcHour12 != 0 {
		hour = fromBCD(hv&0x1F) % 12
		if hv&rtcHourPM != 0 {
			hour += 12
		}
	} else {
		hour = fromBCD(hv & 0x3F)
	}
	day := fromBCD(c.regs[4] & 0x3F)
	month := fromBCD(c.regs[5] & 0x1F)
	year := 2000 + fromBCD(c.regs[6])
	if c.regs[5]&rtcCentury != 0 {
		year += 100
	}
	c.base = time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	c.setAt = c.now()
}

func toBCD(v int) byte {
	return byte(v/10<<4 | v%10)
}

func fromBCD(v byte) int {
	return int(v>>4)*10 + int(v&0x0F)
}
