//go:build !tinygo

package hal

import (
	"sync"
	"sync/atomic"
)

// hostIRQ simulates the global interrupt enable with a mutex. Holding the mutex is
// "interrupts disabled"; a simulated handler runs while holding it, so task code that masks
// and a handler never overlap.
//
// The mutex is not reentrant. InInterrupt reports a running handler so the kernel refuses to
// mask again from inside one instead of locking twice.
type hostIRQ struct {
	mu sync.Mutex
	in atomic.Bool
}

func (q *hostIRQ) Disable() uintptr {
	q.mu.Lock()
	return 0
}

func (q *hostIRQ) Restore(uintptr) {
	q.mu.Unlock()
}

// Raise runs isr with interrupts masked.
func (q *hostIRQ) Raise(isr func()) {
	if isr == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.in.Store(true)
	defer q.in.Store(false)
	isr()
}

// InInterrupt reports whether a simulated handler is running.
func (q *hostIRQ) InInterrupt() bool { return q.in.Load() }

type hostButton struct {
	irq *hostIRQ

	mu  sync.Mutex
	isr func()
}

func (b *hostButton) OnPress(isr func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.isr = isr
}

func (b *hostButton) press() {
	b.mu.Lock()
	isr := b.isr
	b.mu.Unlock()
	b.irq.Raise(isr)
}
