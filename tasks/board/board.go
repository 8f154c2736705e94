// Package board draws the status panel: LED state, button flash, log activity and the
// blink period.
package board

import (
	"time"

	"github.com/rs/zerolog"

	"ringos/hal"
	"ringos/kernel"
	"ringos/ostimer"
	"ringos/proto"
)

const (
	margin   = 8
	lamp     = 32
	cell     = 12
	cellGap  = 2
	barH     = 8
	flashFor = 200 * time.Millisecond
	// msPerPixel scales the period bar.
	msPerPixel = 5
)

type rgb struct{ r, g, b uint8 }

var (
	colBackground = rgb{0, 0, 0}
	colLEDOn      = rgb{0, 255, 0}
	colLEDOff     = rgb{0, 64, 0}
	colButton     = rgb{255, 255, 0}
	colIdle       = rgb{32, 32, 32}
	colLogRecent  = rgb{0, 255, 255}
	colLog        = rgb{0, 0, 255}
	colPeriod     = rgb{255, 255, 255}
)

type Task struct {
	kernel.TaskBase

	fb    hal.Framebuffer
	flash *ostimer.Timer

	ledOn    bool
	flashing bool
	lines    int
	period   time.Duration
	dirty    bool

	log zerolog.Logger
}

// New creates the panel task and subscribes it to the status messages.
func New(k *kernel.Kernel, fb hal.Framebuffer, clk ostimer.Clock, period time.Duration, log zerolog.Logger) (*Task, error) {
	t := &Task{
		fb:     fb,
		flash:  ostimer.New(clk, flashFor),
		period: period,
		dirty:  true,
		log:    log.With().Str("task", "board").Logger(),
	}
	t.Init(k, t)
	for _, id := range []kernel.ID{proto.MsgLEDChanged, proto.MsgLogLine, proto.MsgButton, proto.MsgPeriodChanged} {
		if err := t.Subscribe(id); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Task) EventHandler(id kernel.ID, payload any) {
	switch id {
	case proto.MsgLEDChanged:
		if on, ok := payload.(bool); ok {
			t.ledOn = on
		}
	case proto.MsgLogLine:
		t.lines++
	case proto.MsgButton:
		t.flashing = true
		t.flash.Restart()
	case proto.MsgPeriodChanged:
		if p, ok := payload.(time.Duration); ok {
			t.period = p
		}
	default:
		return
	}
	t.dirty = true
}

func (t *Task) TaskLoop() {
	if t.flashing && t.flash.Expired() {
		t.flashing = false
		t.dirty = true
	}
	if !t.dirty {
		return
	}
	t.draw()
	if err := t.fb.Present(); err != nil && err != hal.ErrNotImplemented {
		t.log.Warn().Err(err).Msg("present failed")
	}
	t.dirty = false
}

// Lines returns the number of log lines seen.
func (t *Task) Lines() int { return t.lines }

func (t *Task) draw() {
	w := t.fb.Width()
	t.fill(0, 0, w, t.fb.Height(), colBackground)

	if t.ledOn {
		t.fill(margin, margin, lamp, lamp, colLEDOn)
	} else {
		t.fill(margin, margin, lamp, lamp, colLEDOff)
	}
	if t.flashing {
		t.fill(2*margin+lamp, margin, lamp, lamp, colButton)
	} else {
		t.fill(2*margin+lamp, margin, lamp, lamp, colIdle)
	}

	// One cell per log line, wrapping; the newest is highlighted.
	y := 2*margin + lamp
	cells := (w - 2*margin) / (cell + cellGap)
	if cells > 0 {
		recent := -1
		if t.lines > 0 {
			recent = (t.lines - 1) % cells
		}
		for i := 0; i < cells; i++ {
			c := colIdle
			switch {
			case i == recent:
				c = colLogRecent
			case i < t.lines:
				c = colLog
			}
			t.fill(margin+i*(cell+cellGap), y, cell, cell, c)
		}
	}

	y += cell + margin
	bar := int(t.period/time.Millisecond) / msPerPixel
	if bar > w-2*margin {
		bar = w - 2*margin
	}
	t.fill(margin, y, bar, barH, colPeriod)
}

func (t *Task) fill(x, y, w, h int, c rgb) {
	t.fb.FillRectRGB(x, y, w, h, c.r, c.g, c.b)
}
