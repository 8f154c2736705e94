package kernel

// Handle is a stable reference to an arena node. The zero Handle never matches a live node.
type Handle struct {
	idx int32
	gen uint32
}

const nilIndex int32 = -1

type slot[T any] struct {
	val  T
	next int32
	gen  uint32
	live bool
}

// arena is a fixed pool of list nodes. Free slots are chained through next; live slots use
// next for whatever list owns them.
type arena[T any] struct {
	slots []slot[T]
	free  int32
	used  int
}

func newArena[T any](n int) arena[T] {
	if n < 0 {
		n = 0
	}
	a := arena[T]{slots: make([]slot[T], n), free: nilIndex}
	for i := n - 1; i >= 0; i-- {
		a.slots[i].next = a.free
		a.free = int32(i)
	}
	return a
}

func (a *arena[T]) alloc(v T) (int32, bool) {
	i := a.free
	if i == nilIndex {
		return nilIndex, false
	}
	s := &a.slots[i]
	a.free = s.next
	s.val = v
	s.next = nilIndex
	s.gen++
	s.live = true
	a.used++
	return i, true
}

func (a *arena[T]) release(i int32) {
	var zero T
	s := &a.slots[i]
	s.val = zero
	s.live = false
	s.next = a.free
	a.free = i
	a.used--
}

func (a *arena[T]) at(i int32) *slot[T] {
	return &a.slots[i]
}

func (a *arena[T]) handle(i int32) Handle {
	return Handle{idx: i, gen: a.slots[i].gen}
}

// lookup resolves h to its slot index if the node it names is still live.
func (a *arena[T]) lookup(h Handle) (int32, bool) {
	if h.idx < 0 || int(h.idx) >= len(a.slots) {
		return nilIndex, false
	}
	s := &a.slots[h.idx]
	if !s.live || s.gen != h.gen {
		return nilIndex, false
	}
	return h.idx, true
}
