package proto

import "time"

// MaxLineText bounds Line.Text in bytes.
const MaxLineText = 160

// Line is a formatted log line travelling as a QueueOwns payload. The queue calls Release
// after the last handler returns; handlers must copy anything they keep.
type Line struct {
	Text string
	At   time.Time

	pool *LinePool
}

// Release returns the line to its pool. Lines not taken from a pool ignore it.
func (l *Line) Release() {
	if l.pool == nil {
		return
	}
	p := l.pool
	l.Text = ""
	l.At = time.Time{}
	p.free = append(p.free, l)
}

// LinePool is a fixed set of preallocated lines. Task context only.
type LinePool struct {
	lines []Line
	free  []*Line
}

func NewLinePool(n int) *LinePool {
	p := &LinePool{lines: make([]Line, n), free: make([]*Line, 0, n)}
	for i := range p.lines {
		p.lines[i].pool = p
		p.free = append(p.free, &p.lines[i])
	}
	return p
}

// Get takes a line from the pool. It reports false when every line is in flight.
func (p *LinePool) Get() (*Line, bool) {
	n := len(p.free)
	if n == 0 {
		return nil, false
	}
	l := p.free[n-1]
	p.free = p.free[:n-1]
	return l, true
}

// Free returns the number of lines available.
func (p *LinePool) Free() int { return len(p.free) }

// Cap returns the pool size.
func (p *LinePool) Cap() int { return len(p.lines) }
