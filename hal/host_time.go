//go:build !tinygo

package hal

import "time"

type hostTime struct {
	now   func() time.Time
	start time.Time
}

func newHostTime(now func() time.Time) *hostTime {
	return &hostTime{now: now, start: now()}
}

func (t *hostTime) Millis() uint32 {
	return uint32(t.now().Sub(t.start) / time.Millisecond)
}
