package kernel

// Error is a kernel result code.
//
// Codes are plain integers so they can be returned from interrupt context without
// allocating. Match them with == or errors.Is.
type Error uint8

const (
	// ErrInvalidID reports a message id outside the configured range or equal to NoMessage.
	ErrInvalidID Error = iota + 1
	// ErrAlreadySubscribed reports a duplicate (id, handler) subscription.
	ErrAlreadySubscribed
	// ErrNotFound reports an unsubscribe or deregister of an absent target.
	ErrNotFound
	// ErrAllocation reports that a node or queue slot could not be obtained.
	ErrAllocation
	// ErrInvalidHandler reports a nil or non-comparable handler or task.
	ErrInvalidHandler
	// ErrAlreadyRegistered reports a task object that is already in the ring.
	ErrAlreadyRegistered
	// ErrMaskHeld reports a task-context mask request while the mask is already held.
	ErrMaskHeld
)

func (e Error) Error() string {
	switch e {
	case ErrInvalidID:
		return "kernel: invalid message id"
	case ErrAlreadySubscribed:
		return "kernel: already subscribed"
	case ErrNotFound:
		return "kernel: not found"
	case ErrAllocation:
		return "kernel: allocation failure"
	case ErrInvalidHandler:
		return "kernel: invalid handler"
	case ErrAlreadyRegistered:
		return "kernel: task already registered"
	case ErrMaskHeld:
		return "kernel: interrupt mask already held"
	default:
		return "kernel: unknown error"
	}
}
