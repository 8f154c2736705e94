package kernel

// Ownership says who releases a message payload.
type Ownership uint8

const (
	// CallerOwns leaves the payload alone after dispatch.
	CallerOwns Ownership = iota
	// QueueOwns releases the payload once every subscriber has seen it.
	QueueOwns
)

func (o Ownership) String() string {
	switch o {
	case CallerOwns:
		return "caller"
	case QueueOwns:
		return "queue"
	default:
		return "unknown"
	}
}

// Releaser is implemented by payloads that must be returned to a pool or otherwise
// released when the queue owns them.
type Releaser interface {
	Release()
}

// Message is a queued event. It is never mutated after Post.
type Message struct {
	ID      ID
	Payload any
	Owner   Ownership
}

func (m *Message) release() {
	if m.Owner != QueueOwns || m.Payload == nil {
		return
	}
	if r, ok := m.Payload.(Releaser); ok {
		r.Release()
	}
}

// mailbox is a fixed-capacity FIFO. It never allocates after construction.
type mailbox struct {
	head  uint32
	tail  uint32
	slots []Message
}

func newMailbox(depth int) mailbox {
	if depth < 0 {
		depth = 0
	}
	return mailbox{slots: make([]Message, depth)}
}

func (mb *mailbox) push(msg Message) bool {
	n := uint32(len(mb.slots))
	if mb.head-mb.tail >= n {
		return false
	}
	mb.slots[mb.head%n] = msg
	mb.head++
	return true
}

func (mb *mailbox) pop() (Message, bool) {
	if mb.tail == mb.head {
		return Message{}, false
	}
	i := mb.tail % uint32(len(mb.slots))
	msg := mb.slots[i]
	mb.slots[i] = Message{}
	mb.tail++
	return msg, true
}

func (mb *mailbox) len() int {
	return int(mb.head - mb.tail)
}
