package kernel

import "github.com/rs/zerolog"

// Task is a cooperatively scheduled unit of work.
//
// TaskLoop must return in bounded time: a task that never returns stalls every other task.
type Task interface {
	Receiver
	TaskLoop()
}

type taskKind uint8

const (
	taskFunc taskKind = iota + 1
	taskObject
)

type taskNode struct {
	kind taskKind
	fn   func(ctx any)
	ctx  any
	task Task
}

// Ring is the round-robin task scheduler. It is task context only.
//
// New tasks are prepended, so registration order is LIFO. The cursor persists across Tick
// calls; one task runs per Tick.
type Ring struct {
	nodes  arena[taskNode]
	head   int32
	cursor int32

	running Task

	log zerolog.Logger
}

func newRing(cfg Config, log zerolog.Logger) *Ring {
	return &Ring{
		nodes:  newArena[taskNode](cfg.MaxTasks),
		head:   nilIndex,
		cursor: nilIndex,
		log:    log,
	}
}

// Len returns the number of registered tasks.
func (r *Ring) Len() int { return r.nodes.used }

// Register schedules t. t is identified with == and follows the same rules as
// ReceiverHandler; a non-comparable t returns ErrInvalidHandler.
func (r *Ring) Register(t Task) error {
	if !identifiable(t) {
		return ErrInvalidHandler
	}
	if r.find(t) != nilIndex {
		return ErrAlreadyRegistered
	}
	_, err := r.push(taskNode{kind: taskObject, task: t})
	return err
}

// RegisterFunc schedules fn(ctx). The context stays owned by the caller.
func (r *Ring) RegisterFunc(fn func(ctx any), ctx any) (Handle, error) {
	if fn == nil {
		return Handle{}, ErrInvalidHandler
	}
	i, err := r.push(taskNode{kind: taskFunc, fn: fn, ctx: ctx})
	if err != nil {
		return Handle{}, err
	}
	return r.nodes.handle(i), nil
}

func (r *Ring) push(n taskNode) (int32, error) {
	i, ok := r.nodes.alloc(n)
	if !ok {
		r.log.Warn().Int("capacity", len(r.nodes.slots)).Msg("ring: task pool exhausted")
		return nilIndex, ErrAllocation
	}
	r.nodes.at(i).next = r.head
	r.head = i
	return i, nil
}

// Deregister removes t. It is safe to call from t's own TaskLoop.
func (r *Ring) Deregister(t Task) error {
	if !identifiable(t) {
		return ErrNotFound
	}
	i := r.find(t)
	if i == nilIndex {
		return ErrNotFound
	}
	r.unlink(i)
	return nil
}

// DeregisterHandle removes the function task registered under h.
func (r *Ring) DeregisterHandle(h Handle) error {
	i, ok := r.nodes.lookup(h)
	if !ok {
		return ErrNotFound
	}
	r.unlink(i)
	return nil
}

func (r *Ring) find(t Task) int32 {
	for i := r.head; i != nilIndex; i = r.nodes.at(i).next {
		n := &r.nodes.at(i).val
		if n.kind == taskObject && n.task == t {
			return i
		}
	}
	return nilIndex
}

func (r *Ring) unlink(i int32) {
	prev := nilIndex
	for j := r.head; j != nilIndex && j != i; j = r.nodes.at(j).next {
		prev = j
	}
	next := r.nodes.at(i).next
	if r.cursor == i {
		r.cursor = next
	}
	if prev == nilIndex {
		r.head = next
	} else {
		r.nodes.at(prev).next = next
	}
	r.nodes.release(i)
}

// Tick runs exactly one task and advances the cursor. It reports whether a task ran.
func (r *Ring) Tick() bool {
	i := r.cursor
	if i == nilIndex {
		i = r.head
	}
	if i == nilIndex {
		return false
	}

	s := r.nodes.at(i)
	r.cursor = s.next
	n := s.val

	switch n.kind {
	case taskFunc:
		n.fn(n.ctx)
	case taskObject:
		r.running = n.task
		n.task.TaskLoop()
		r.running = nil
	}
	return true
}
