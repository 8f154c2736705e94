package kernel

import (
	"sync"
	"sync/atomic"
)

// PanicInfo contains details about a recovered panic.
type PanicInfo struct {
	// Task is the task whose TaskLoop panicked, nil for function tasks and handlers.
	Task Task
	// MessageID is the message being dispatched, NoMessage outside dispatch.
	MessageID ID
	Value     any
	Stack     []byte
}

type panicState struct {
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
}

// InPanicMode reports whether the kernel has halted after a panic.
func (p *panicState) InPanicMode() bool {
	return p.panicActive.Load()
}

// SetPanicHandler installs the panic handler.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func (p *panicState) SetPanicHandler(fn func(PanicInfo)) {
	p.panicHandler.Store(fn)
}

func (p *panicState) triggerPanic(info PanicInfo) {
	p.panicOnce.Do(func() {
		p.panicActive.Store(true)
		info.Stack = captureStack()
		if v := p.panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}
