package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ringos/eelog"
	"ringos/hal"
	"ringos/internal/buildinfo"
	"ringos/internal/config"
	"ringos/internal/logging"
	"ringos/kernel"
	"ringos/proto"
	"ringos/tasks/board"
	"ringos/tasks/rtclog"
	"ringos/tasks/toggle"
)

// EEPROMSize is the AT24C32 capacity in bytes.
const EEPROMSize = 4096

type system struct {
	k   *kernel.Kernel
	log zerolog.Logger

	toggle *toggle.Task
	rtclog *rtclog.Task
	board  *board.Task
	store  *eelog.Log
}

// New initializes the OS on h and returns the step function. The step function runs one
// kernel iteration and returns kernel.ErrHalted once a task has panicked.
func New(h hal.HAL, cfg config.Config) (func() error, error) {
	s, err := newSystem(h, cfg)
	if err != nil {
		return nil, err
	}
	return s.step, nil
}

// Run starts the OS and blocks until it halts (TinyGo/native entrypoint).
func Run(h hal.HAL, cfg config.Config) error {
	step, err := New(h, cfg)
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("ringos: " + err.Error())
		}
		return err
	}
	for {
		if err := step(); err != nil {
			return err
		}
	}
}

func newSystem(h hal.HAL, cfg config.Config) (*system, error) {
	log, err := logging.New(h.Logger(), cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("app: logging: %w", err)
	}

	kcfg := cfg.Kernel
	if kcfg.MaxMessageID < proto.MaxID {
		kcfg.MaxMessageID = proto.MaxID
	}
	opts := []kernel.Option{kernel.WithLogger(log)}
	if irq := h.Interrupts(); irq != nil {
		opts = append(opts, kernel.WithMask(irq))
	}
	s := &system{k: kernel.New(kcfg, opts...), log: log}
	installPanicHandler(s.k, h, log)

	if cfg.Tasks.RTCLog.Persist {
		s.store, err = eelog.NewAT24(h.I2C(), EEPROMSize)
		if err != nil {
			log.Warn().Err(err).Msg("eeprom log unavailable")
			s.store = nil
		} else {
			log.Info().Int("records", s.store.Len()).Int("capacity", s.store.Capacity()).Msg("eeprom log opened")
		}
	}

	periods := make([]time.Duration, len(cfg.Tasks.Toggle.Periods))
	for i, p := range cfg.Tasks.Toggle.Periods {
		periods[i] = p.Std()
	}
	if s.toggle, err = toggle.New(s.k, h.LED(), h.Time(), periods, log); err != nil {
		return nil, fmt.Errorf("app: toggle: %w", err)
	}

	rc := cfg.Tasks.RTCLog
	s.rtclog, err = rtclog.New(s.k, rtclog.NewDS3231(h.I2C()), h.Logger(), s.store, h.Time(), rtclog.Config{
		Interval: rc.Interval.Std(),
		Message:  rc.Message,
		Clock12:  rc.Clock12,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("app: rtclog: %w", err)
	}

	// Boards without a real framebuffer get no panel task.
	if fb := framebuffer(h); fb != nil && fb.Buffer() != nil {
		if s.board, err = board.New(s.k, fb, h.Time(), periods[0], log); err != nil {
			return nil, fmt.Errorf("app: board: %w", err)
		}
	} else {
		log.Info().Msg("no framebuffer, status panel disabled")
	}

	for _, t := range []interface{ Start() error }{s.toggle, s.rtclog} {
		if err := t.Start(); err != nil {
			return nil, fmt.Errorf("app: start: %w", err)
		}
	}
	if s.board != nil {
		if err := s.board.Start(); err != nil {
			return nil, fmt.Errorf("app: start board: %w", err)
		}
	}

	// The ISR only enqueues; everything else happens in task context.
	q := s.k.Queue()
	h.Button().OnPress(func() {
		_ = q.Post(proto.MsgButton, nil, kernel.CallerOwns, kernel.InterruptContext)
	})

	log.Info().EmbedObject(buildinfo.Stamp{}).Int("tasks", s.k.Ring().Len()).Msg("ringos started")
	return s, nil
}

func framebuffer(h hal.HAL) hal.Framebuffer {
	d := h.Display()
	if d == nil {
		return nil
	}
	return d.Framebuffer()
}

func (s *system) step() error {
	s.k.Step()
	if s.k.InPanicMode() {
		return kernel.ErrHalted
	}
	return nil
}
