// Package ostimer provides task-time timeouts over a wrapping millisecond counter.
//
// Timers are polled from TaskLoop; nothing fires asynchronously.
package ostimer

import "time"

// Clock is a free-running millisecond counter. hal.Time satisfies it.
type Clock interface {
	Millis() uint32
}

// Timer expires once more than its timeout has elapsed since the last Restart or Set.
// The zero Timer is not usable; call New.
type Timer struct {
	clk      Clock
	start    uint32
	timeout  uint32
	frozenAt uint32
	frozen   bool
}

// New returns a timer that starts counting now.
func New(clk Clock, timeout time.Duration) *Timer {
	t := &Timer{clk: clk}
	t.Set(timeout)
	return t
}

// Restart starts a new period with the current timeout.
func (t *Timer) Restart() {
	t.start = t.clk.Millis()
	t.frozen = false
}

// Set changes the timeout and restarts the timer.
func (t *Timer) Set(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	t.timeout = uint32(timeout / time.Millisecond)
	t.Restart()
}

// Timeout returns the current timeout.
func (t *Timer) Timeout() time.Duration {
	return time.Duration(t.timeout) * time.Millisecond
}

// Elapsed returns the time counted so far. A frozen timer does not advance.
func (t *Timer) Elapsed() time.Duration {
	now := t.clk.Millis()
	if t.frozen {
		now = t.frozenAt
	}
	return time.Duration(now-t.start) * time.Millisecond
}

// Expired reports whether strictly more than the timeout has elapsed.
func (t *Timer) Expired() bool {
	return t.Elapsed() > t.Timeout()
}

// Freeze stops the timer at its current point. Freezing twice keeps the first point.
func (t *Timer) Freeze() {
	if t.frozen {
		return
	}
	t.frozenAt = t.clk.Millis()
	t.frozen = true
}

// Thaw resumes a frozen timer; the frozen interval is not counted.
func (t *Timer) Thaw() {
	if !t.frozen {
		return
	}
	t.start += t.clk.Millis() - t.frozenAt
	t.frozen = false
}

// Frozen reports whether the timer is frozen.
func (t *Timer) Frozen() bool { return t.frozen }
