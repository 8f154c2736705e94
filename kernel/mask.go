package kernel

import "sync/atomic"

// ExecContext tells Post which execution context the caller runs in.
type ExecContext uint8

const (
	// TaskContext is the main loop: Post masks interrupts around the enqueue.
	TaskContext ExecContext = iota
	// InterruptContext is an interrupt handler: interrupts are already masked.
	InterruptContext
)

func (c ExecContext) String() string {
	switch c {
	case TaskContext:
		return "task"
	case InterruptContext:
		return "interrupt"
	default:
		return "unknown"
	}
}

// InterruptMask disables and restores the asynchronous event source.
//
// On a microcontroller this is the global interrupt enable. Disable returns the previous
// state which must be handed back to Restore.
type InterruptMask interface {
	Disable() uintptr
	Restore(state uintptr)
}

// interruptReporter is implemented by masks that can tell whether the caller is running
// inside an interrupt handler.
type interruptReporter interface {
	InInterrupt() bool
}

type nopMask struct{}

func (nopMask) Disable() uintptr { return 0 }
func (nopMask) Restore(uintptr)  {}

// guard is the exclusive-access section around queue mutation.
//
// It is single-owner: acquiring it while held (or from inside an interrupt handler, when the
// mask can tell) fails instead of nesting.
type guard struct {
	mask  InterruptMask
	held  atomic.Bool
	state uintptr
}

func newGuard(mask InterruptMask) *guard {
	if mask == nil {
		mask = nopMask{}
	}
	return &guard{mask: mask}
}

func (g *guard) acquire() bool {
	if g.held.Load() {
		return false
	}
	if r, ok := g.mask.(interruptReporter); ok && r.InInterrupt() {
		return false
	}
	st := g.mask.Disable()
	g.state = st
	g.held.Store(true)
	return true
}

func (g *guard) release() {
	st := g.state
	g.held.Store(false)
	g.mask.Restore(st)
}
