// Package rtclog writes timestamped log lines from the DS3231 real-time clock.
//
// Each line goes to the HAL logger, to the EEPROM record log (when one is attached) and
// onto the queue as proto.MsgLogLine.
package rtclog

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"

	"ringos/eelog"
	"ringos/hal"
	"ringos/kernel"
	"ringos/ostimer"
	"ringos/proto"
)

// MaxMessage bounds the caller-supplied part of a line in bytes.
const MaxMessage = 127

const defaultPoolSize = 4

// RTC reads and sets the wall clock. *ds3231.Device satisfies it.
type RTC interface {
	ReadTime() (time.Time, error)
	SetTime(t time.Time) error
}

// NewDS3231 returns the DS3231 on bus.
func NewDS3231(bus drivers.I2C) RTC {
	d := ds3231.New(bus)
	d.Configure()
	return &d
}

type Config struct {
	Interval time.Duration
	Message  string
	// Clock12 renders hours 1-12 followed by am/pm.
	Clock12 bool
	// PoolSize is the number of MsgLogLine payloads that may be in flight.
	PoolSize int
}

type Task struct {
	kernel.TaskBase

	rtc   RTC
	sink  hal.Logger
	store *eelog.Log
	pool  *proto.LinePool
	tm    *ostimer.Timer
	cfg   Config

	log zerolog.Logger
}

// New creates the task and subscribes it to proto.MsgButton and proto.MsgLogRequest.
// store may be nil.
func New(k *kernel.Kernel, rtc RTC, sink hal.Logger, store *eelog.Log, clk ostimer.Clock, cfg Config, log zerolog.Logger) (*Task, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("rtclog: interval must be > 0, got %v", cfg.Interval)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = defaultPoolSize
	}
	t := &Task{
		rtc:   rtc,
		sink:  sink,
		store: store,
		pool:  proto.NewLinePool(cfg.PoolSize),
		tm:    ostimer.New(clk, cfg.Interval),
		cfg:   cfg,
		log:   log.With().Str("task", "rtclog").Logger(),
	}
	t.Init(k, t)
	for _, id := range []kernel.ID{proto.MsgButton, proto.MsgLogRequest} {
		if err := t.Subscribe(id); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Task) TaskLoop() {
	if !t.tm.Expired() {
		return
	}
	_ = t.LogLine(t.cfg.Message)
	t.tm.Restart()
}

func (t *Task) EventHandler(id kernel.ID, payload any) {
	switch id {
	case proto.MsgButton:
		_ = t.LogLine("button")
	case proto.MsgLogRequest:
		if s, ok := payload.(string); ok {
			_ = t.LogLine(s)
		}
	}
}

// LogLine reads the clock and writes one line carrying msg.
func (t *Task) LogLine(msg string) error {
	now, err := t.rtc.ReadTime()
	if err != nil {
		t.log.Error().Err(err).Msg("rtc read failed")
		return fmt.Errorf("rtclog: read rtc: %w", err)
	}
	text := Format(now, msg, t.cfg.Clock12)
	t.sink.WriteLineString(text)

	if t.store != nil {
		if err := t.store.Append(eelog.Record{At: now, Text: truncate(msg)}); err != nil {
			t.log.Warn().Err(err).Msg("eeprom append failed")
		}
	}

	line, ok := t.pool.Get()
	if !ok {
		t.log.Warn().Int("pool", t.pool.Cap()).Msg("line pool exhausted")
		return nil
	}
	line.Text = text
	line.At = now
	if err := t.Post(proto.MsgLogLine, line, kernel.QueueOwns); err != nil {
		line.Release()
		t.log.Warn().Err(err).Msg("post log line failed")
	}
	return nil
}

// Format renders "<Weekday> h:mm:ss [am|pm] d/mm/yy: msg". msg is cut to MaxMessage bytes.
func Format(at time.Time, msg string, clock12 bool) string {
	msg = truncate(msg)
	day, month, year := at.Day(), int(at.Month()), at.Year()%100
	if !clock12 {
		return fmt.Sprintf("%s %d:%02d:%02d %d/%02d/%02d: %s",
			at.Weekday(), at.Hour(), at.Minute(), at.Second(), day, month, year, msg)
	}
	h, marker := at.Hour()%12, "am"
	if h == 0 {
		h = 12
	}
	if at.Hour() >= 12 {
		marker = "pm"
	}
	return fmt.Sprintf("%s %d:%02d:%02d %s %d/%02d/%02d: %s",
		at.Weekday(), h, at.Minute(), at.Second(), marker, day, month, year, msg)
}

func truncate(msg string) string {
	if len(msg) > MaxMessage {
		return msg[:MaxMessage]
	}
	return msg
}
