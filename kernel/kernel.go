package kernel

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxMessagesPerTick = 2
	DefaultMaxMessageID       = 26
	DefaultQueueDepth         = 32
	DefaultMaxSubscriptions   = 64
	DefaultMaxTasks           = 32
)

// ErrHalted is returned by Run once a task or handler has panicked.
var ErrHalted = errors.New("kernel: halted after panic")

// Config sizes the kernel. Zero fields take the defaults.
type Config struct {
	// MaxMessagesPerTick bounds how many messages Step drains before running a task.
	MaxMessagesPerTick int `yaml:"max_messages_per_tick"`
	// MaxMessageID is the exclusive upper bound of valid message ids.
	MaxMessageID     int `yaml:"max_message_id"`
	QueueDepth       int `yaml:"queue_depth"`
	MaxSubscriptions int `yaml:"max_subscriptions"`
	MaxTasks         int `yaml:"max_tasks"`
}

// WithDefaults returns c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MaxMessagesPerTick <= 0 {
		c.MaxMessagesPerTick = DefaultMaxMessagesPerTick
	}
	if c.MaxMessageID <= 0 {
		c.MaxMessageID = DefaultMaxMessageID
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.MaxSubscriptions <= 0 {
		c.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if c.MaxTasks <= 0 {
		c.MaxTasks = DefaultMaxTasks
	}
	return c
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithMask sets the interrupt mask used around queue mutation. Without it the kernel
// assumes nothing runs asynchronously.
func WithMask(m InterruptMask) Option {
	return func(k *Kernel) { k.mask = m }
}

// WithLogger sets the kernel logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(k *Kernel) { k.log = l }
}

// Kernel is the cooperative scheduler plus message queue. Build one at startup and hand
// it to every collaborator.
type Kernel struct {
	cfg  Config
	mask InterruptMask
	log  zerolog.Logger

	mq   *Queue
	ring *Ring

	panicState
}

// New creates a kernel instance.
func New(cfg Config, opts ...Option) *Kernel {
	k := &Kernel{cfg: cfg.WithDefaults(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(k)
	}
	k.mq = newQueue(k.cfg, newGuard(k.mask), k.log)
	k.ring = newRing(k.cfg, k.log)
	return k
}

// Config returns the effective configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Queue returns the message queue.
func (k *Kernel) Queue() *Queue { return k.mq }

// Ring returns the task ring.
func (k *Kernel) Ring() *Ring { return k.ring }

// Step runs one kernel loop iteration: a bounded message batch, then one task.
//
// A panic in a handler or task is recovered, reported to the panic handler and leaves the
// kernel halted; later Steps do nothing.
func (k *Kernel) Step() {
	if k.InPanicMode() {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			info := PanicInfo{Task: k.ring.running, MessageID: k.mq.current, Value: v}
			k.ring.running = nil
			k.log.Error().
				Int("message_id", int(info.MessageID)).
				Interface("panic", v).
				Msg("kernel: panic in task context")
			k.triggerPanic(info)
		}
	}()

	k.mq.DispatchBatch(k.cfg.MaxMessagesPerTick)
	k.ring.Tick()
}

// Run calls Step until ctx is done or the kernel halts.
func (k *Kernel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		k.Step()
		if k.InPanicMode() {
			return ErrHalted
		}
		runtime.Gosched()
	}
}
