package kernel

import "github.com/rs/zerolog"

// Queue is the interrupt-safe publish/subscribe message queue.
//
// Post may be called from interrupt context. Everything else is task context only.
type Queue struct {
	maxID ID
	heads []int32
	nodes arena[Handler]
	box   mailbox
	g     *guard

	scratch     []Handle
	dispatching bool
	current     ID

	log zerolog.Logger
}

func newQueue(cfg Config, g *guard, log zerolog.Logger) *Queue {
	q := &Queue{
		maxID:   ID(cfg.MaxMessageID),
		heads:   make([]int32, cfg.MaxMessageID),
		nodes:   newArena[Handler](cfg.MaxSubscriptions),
		box:     newMailbox(cfg.QueueDepth),
		g:       g,
		scratch: make([]Handle, 0, cfg.MaxSubscriptions),
		current: NoMessage,
		log:     log,
	}
	for i := range q.heads {
		q.heads[i] = nilIndex
	}
	return q
}

// MaxID returns the exclusive upper bound of valid message ids.
func (q *Queue) MaxID() ID { return q.maxID }

func (q *Queue) validID(id ID) bool {
	return id != NoMessage && id >= 0 && id < q.maxID
}

// Subscribe registers h for message id. New subscriptions are prepended.
func (q *Queue) Subscribe(id ID, h Handler) error {
	if !q.validID(id) {
		return ErrInvalidID
	}
	if !h.valid() {
		return ErrInvalidHandler
	}
	for i := q.heads[id]; i != nilIndex; i = q.nodes.at(i).next {
		if q.nodes.at(i).val.same(h) {
			return ErrAlreadySubscribed
		}
	}
	i, ok := q.nodes.alloc(h)
	if !ok {
		q.log.Warn().Int("id", int(id)).Int("capacity", len(q.nodes.slots)).Msg("mq: subscription pool exhausted")
		return ErrAllocation
	}
	q.nodes.at(i).next = q.heads[id]
	q.heads[id] = i
	return nil
}

// Unsubscribe removes h from message id.
func (q *Queue) Unsubscribe(id ID, h Handler) error {
	if !q.validID(id) {
		return ErrInvalidID
	}
	if !h.valid() {
		return ErrInvalidHandler
	}
	return q.remove(id, h)
}

// UnsubscribeAllIDs removes h from every message id. It returns ErrNotFound when h was not
// subscribed to anything, so repeated calls are harmless.
func (q *Queue) UnsubscribeAllIDs(h Handler) error {
	if !h.valid() {
		return ErrInvalidHandler
	}
	removed := false
	for id := ID(0); id < q.maxID; id++ {
		if q.remove(id, h) == nil {
			removed = true
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (q *Queue) remove(id ID, h Handler) error {
	prev := nilIndex
	for i := q.heads[id]; i != nilIndex; i = q.nodes.at(i).next {
		s := q.nodes.at(i)
		if !s.val.same(h) {
			prev = i
			continue
		}
		if prev == nilIndex {
			q.heads[id] = s.next
		} else {
			q.nodes.at(prev).next = s.next
		}
		q.nodes.release(i)
		return nil
	}
	return ErrNotFound
}

// Subscribers returns the number of handlers registered for id.
func (q *Queue) Subscribers(id ID) int {
	if !q.validID(id) {
		return 0
	}
	n := 0
	for i := q.heads[id]; i != nilIndex; i = q.nodes.at(i).next {
		n++
	}
	return n
}

// Post enqueues a message at the tail.
//
// From TaskContext the enqueue runs with interrupts masked. From InterruptContext the caller
// is already masked and Post must not mask again. A full queue reports ErrAllocation; the
// message is dropped and the queue does not retry.
func (q *Queue) Post(id ID, payload any, owner Ownership, ctx ExecContext) error {
	if !q.validID(id) {
		return ErrInvalidID
	}
	msg := Message{ID: id, Payload: payload, Owner: owner}
	if ctx == InterruptContext {
		if !q.box.push(msg) {
			return ErrAllocation
		}
		return nil
	}

	if !q.g.acquire() {
		return ErrMaskHeld
	}
	ok := q.box.push(msg)
	q.g.release()
	if !ok {
		return ErrAllocation
	}
	return nil
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	if !q.g.acquire() {
		return q.box.len()
	}
	n := q.box.len()
	q.g.release()
	return n
}

// DispatchBatch pops and dispatches up to max messages and returns how many it dispatched.
//
// Each message is delivered to every handler subscribed to its id before the next message is
// popped. The handler list is snapshotted per message: handlers added during delivery wait for
// the next message, handlers removed during delivery are skipped. Calling DispatchBatch from
// inside a handler dispatches nothing.
func (q *Queue) DispatchBatch(max int) int {
	if q.dispatching {
		return 0
	}
	q.dispatching = true
	defer func() { q.dispatching = false }()

	n := 0
	for n < max {
		if !q.g.acquire() {
			break
		}
		msg, ok := q.box.pop()
		q.g.release()
		if !ok {
			break
		}

		q.deliver(&msg)
		msg.release()
		n++
	}
	return n
}

func (q *Queue) deliver(msg *Message) {
	q.current = msg.ID
	q.scratch = q.scratch[:0]
	for i := q.heads[msg.ID]; i != nilIndex; i = q.nodes.at(i).next {
		q.scratch = append(q.scratch, q.nodes.handle(i))
	}
	for _, ref := range q.scratch {
		i, ok := q.nodes.lookup(ref)
		if !ok {
			continue
		}
		h := q.nodes.at(i).val
		h.call(msg.ID, msg.Payload)
	}
	q.current = NoMessage
}
