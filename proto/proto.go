// Package proto defines the message ids and payloads shared by the tasks.
package proto

import "ringos/kernel"

const (
	// MsgButton is posted from the button interrupt. Payload: nil.
	MsgButton kernel.ID = iota + 1
	// MsgLEDChanged is posted after every LED toggle. Payload: bool (LED on).
	MsgLEDChanged
	// MsgLogLine is posted for every line the RTC log writes. Payload: *Line, QueueOwns.
	MsgLogLine
	// MsgLogRequest asks the RTC log task to log a line now. Payload: string, CallerOwns.
	MsgLogRequest
	// MsgPeriodChanged is posted when the toggle period changes. Payload: time.Duration.
	MsgPeriodChanged

	msgEnd
)

// MaxID is the smallest kernel.Config.MaxMessageID covering every message above.
const MaxID = int(msgEnd)

// Name returns a short name for logging.
func Name(id kernel.ID) string {
	switch id {
	case MsgButton:
		return "button"
	case MsgLEDChanged:
		return "led_changed"
	case MsgLogLine:
		return "log_line"
	case MsgLogRequest:
		return "log_request"
	case MsgPeriodChanged:
		return "period_changed"
	case kernel.NoMessage:
		return "none"
	default:
		return "unknown"
	}
}
