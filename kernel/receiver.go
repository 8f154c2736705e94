package kernel

import "sync"

// ReceiverBase gives an embedding type a no-op EventHandler and a Close hook that removes
// every subscription of the receiver.
//
// Typical use:
//
//	type Sensor struct{ kernel.ReceiverBase }
//
//	s := &Sensor{}
//	s.Init(k, s)
//	_ = s.Subscribe(MsgSample)
//	defer s.Close()
type ReceiverBase struct {
	k    *Kernel
	self Receiver

	closeOnce sync.Once
}

// Init binds the receiver to k. self is the embedding value.
func (b *ReceiverBase) Init(k *Kernel, self Receiver) {
	b.k = k
	b.self = self
}

// Kernel returns the kernel the receiver is bound to.
func (b *ReceiverBase) Kernel() *Kernel { return b.k }

// EventHandler does nothing. Embedding types override it.
func (b *ReceiverBase) EventHandler(ID, any) {}

// Subscribe subscribes the receiver to id.
func (b *ReceiverBase) Subscribe(id ID) error {
	if b.k == nil {
		return ErrInvalidHandler
	}
	return b.k.mq.Subscribe(id, ReceiverHandler(b.self))
}

// Unsubscribe removes the receiver from id.
func (b *ReceiverBase) Unsubscribe(id ID) error {
	if b.k == nil {
		return ErrInvalidHandler
	}
	return b.k.mq.Unsubscribe(id, ReceiverHandler(b.self))
}

// Post posts a message from task context.
func (b *ReceiverBase) Post(id ID, payload any, owner Ownership) error {
	if b.k == nil {
		return ErrInvalidHandler
	}
	return b.k.mq.Post(id, payload, owner, TaskContext)
}

// Close unsubscribes the receiver from every id. It runs once; later calls do nothing.
func (b *ReceiverBase) Close() {
	b.closeOnce.Do(func() {
		if b.k == nil {
			return
		}
		_ = b.k.mq.UnsubscribeAllIDs(ReceiverHandler(b.self))
	})
}

// TaskBase is ReceiverBase plus ring registration. Constructing a task does not schedule it;
// Start does.
type TaskBase struct {
	ReceiverBase
	task Task
}

// Init binds the task to k. self is the embedding value.
func (b *TaskBase) Init(k *Kernel, self Task) {
	b.ReceiverBase.Init(k, self)
	b.task = self
}

// Start registers the task with the ring.
func (b *TaskBase) Start() error {
	if b.k == nil {
		return ErrInvalidHandler
	}
	return b.k.ring.Register(b.task)
}

// Close deregisters the task and drops its subscriptions. It runs once; errors are ignored.
func (b *TaskBase) Close() {
	b.closeOnce.Do(func() {
		if b.k == nil {
			return
		}
		_ = b.k.ring.Deregister(b.task)
		_ = b.k.mq.UnsubscribeAllIDs(ReceiverHandler(b.task))
	})
}
