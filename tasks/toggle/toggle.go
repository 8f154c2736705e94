// Package toggle blinks the board LED. The button cycles through the configured periods.
package toggle

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ringos/hal"
	"ringos/kernel"
	"ringos/ostimer"
	"ringos/proto"
)

var ErrNoPeriods = errors.New("toggle: no periods")

type Task struct {
	kernel.TaskBase

	led     hal.LED
	tm      *ostimer.Timer
	periods []time.Duration
	idx     int
	on      bool

	log zerolog.Logger
}

// New creates the task and subscribes it to proto.MsgButton. Start schedules it.
func New(k *kernel.Kernel, led hal.LED, clk ostimer.Clock, periods []time.Duration, log zerolog.Logger) (*Task, error) {
	if len(periods) == 0 {
		return nil, ErrNoPeriods
	}
	t := &Task{
		led:     led,
		tm:      ostimer.New(clk, periods[0]),
		periods: append([]time.Duration(nil), periods...),
		log:     log.With().Str("task", "toggle").Logger(),
	}
	t.Init(k, t)
	if err := t.Subscribe(proto.MsgButton); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Task) TaskLoop() {
	if !t.tm.Expired() {
		return
	}
	t.on = !t.on
	if t.on {
		t.led.High()
	} else {
		t.led.Low()
	}
	t.post(proto.MsgLEDChanged, t.on)
	t.tm.Restart()
}

func (t *Task) EventHandler(id kernel.ID, _ any) {
	if id != proto.MsgButton {
		return
	}
	t.idx = (t.idx + 1) % len(t.periods)
	p := t.periods[t.idx]
	t.tm.Set(p)
	t.log.Info().Dur("period", p).Msg("period changed")
	t.post(proto.MsgPeriodChanged, p)
	t.post(proto.MsgLogRequest, "blink "+p.String())
}

func (t *Task) post(id kernel.ID, payload any) {
	if err := t.Post(id, payload, kernel.CallerOwns); err != nil {
		t.log.Warn().Err(err).Str("msg", proto.Name(id)).Msg("post failed")
	}
}

// Period returns the current blink period.
func (t *Task) Period() time.Duration { return t.periods[t.idx] }

// On reports the LED state last written.
func (t *Task) On() bool { return t.on }
