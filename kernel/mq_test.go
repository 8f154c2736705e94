package kernel

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

type recorder struct {
	ReceiverBase
	name string
	log  *[]string
	ids  []ID
	got  []any
}

func (r *recorder) EventHandler(id ID, payload any) {
	r.ids = append(r.ids, id)
	r.got = append(r.got, payload)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
}

type countingMask struct {
	disables int
	restores int
}

func (m *countingMask) Disable() uintptr { m.disables++; return uintptr(m.disables) }
func (m *countingMask) Restore(uintptr)  { m.restores++ }

type payload struct {
	released int
}

func (p *payload) Release() { p.released++ }

func newTestKernel(opts ...Option) *Kernel {
	return New(Config{}, opts...)
}

func TestSubscribeRejectsDuplicates(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	r := &recorder{}
	f := NewFunc(func(any) {})

	if err := q.Subscribe(3, ReceiverHandler(r)); err != nil {
		t.Fatalf("Subscribe() = %v, want nil", err)
	}
	if err := q.Subscribe(3, ReceiverHandler(r)); err != ErrAlreadySubscribed {
		t.Fatalf("Subscribe() duplicate = %v, want %v", err, ErrAlreadySubscribed)
	}
	if err := q.Subscribe(3, FuncHandler(f)); err != nil {
		t.Fatalf("Subscribe(func) = %v, want nil", err)
	}
	if err := q.Subscribe(3, FuncHandler(f)); err != ErrAlreadySubscribed {
		t.Fatalf("Subscribe(func) duplicate = %v, want %v", err, ErrAlreadySubscribed)
	}
	if err := q.Subscribe(4, ReceiverHandler(r)); err != nil {
		t.Fatalf("Subscribe() other id = %v, want nil", err)
	}
	if got := q.Subscribers(3); got != 2 {
		t.Fatalf("Subscribers(3) = %d, want 2", got)
	}

	if err := q.Post(3, nil, CallerOwns, TaskContext); err != nil {
		t.Fatalf("Post() = %v", err)
	}
	q.DispatchBatch(1)
	if len(r.ids) != 1 {
		t.Fatalf("receiver calls = %d, want 1", len(r.ids))
	}
}

func TestSubscribeInvalid(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	r := &recorder{}

	for _, id := range []ID{NoMessage, -7, DefaultMaxMessageID, DefaultMaxMessageID + 1} {
		if err := q.Subscribe(id, ReceiverHandler(r)); err != ErrInvalidID {
			t.Fatalf("Subscribe(%d) = %v, want %v", id, err, ErrInvalidID)
		}
		if err := q.Unsubscribe(id, ReceiverHandler(r)); err != ErrInvalidID {
			t.Fatalf("Unsubscribe(%d) = %v, want %v", id, err, ErrInvalidID)
		}
	}
	if err := q.Subscribe(1, Handler{}); err != ErrInvalidHandler {
		t.Fatalf("Subscribe(zero handler) = %v, want %v", err, ErrInvalidHandler)
	}
	if err := q.Subscribe(1, FuncHandler(nil)); err != ErrInvalidHandler {
		t.Fatalf("Subscribe(nil func) = %v, want %v", err, ErrInvalidHandler)
	}
	var nilRecv *recorder
	if err := q.Subscribe(1, ReceiverHandler(nilRecv)); err != ErrInvalidHandler {
		t.Fatalf("Subscribe(nil receiver) = %v, want %v", err, ErrInvalidHandler)
	}
}

// boxed is a value receiver whose comparability depends on what v holds.
type boxed struct{ v any }

func (boxed) EventHandler(ID, any) {}
func (boxed) TaskLoop()            {}

func TestValueReceiverHoldingSliceRejected(t *testing.T) {
	k := newTestKernel()

	if err := k.Queue().Subscribe(1, ReceiverHandler(boxed{v: []int{1}})); err != ErrInvalidHandler {
		t.Fatalf("Subscribe(slice inside) = %v, want %v", err, ErrInvalidHandler)
	}
	if err := k.Ring().Register(boxed{v: map[int]int{}}); err != ErrInvalidHandler {
		t.Fatalf("Register(map inside) = %v, want %v", err, ErrInvalidHandler)
	}
	if err := k.Ring().Register(boxed{v: [1]any{[]int{}}}); err != ErrInvalidHandler {
		t.Fatalf("Register(slice in array) = %v, want %v", err, ErrInvalidHandler)
	}

	ok := boxed{v: 7}
	if err := k.Queue().Subscribe(1, ReceiverHandler(ok)); err != nil {
		t.Fatalf("Subscribe(int inside) = %v", err)
	}
	if err := k.Queue().Subscribe(1, ReceiverHandler(boxed{v: []int{}})); err != ErrInvalidHandler {
		t.Fatalf("Subscribe(slice next to comparable) = %v, want %v", err, ErrInvalidHandler)
	}
	if err := k.Queue().Unsubscribe(1, ReceiverHandler(ok)); err != nil {
		t.Fatalf("Unsubscribe(int inside) = %v", err)
	}
	if err := k.Ring().Register(boxed{v: "task"}); err != nil {
		t.Fatalf("Register(string inside) = %v", err)
	}
	if k.Ring().Len() != 1 {
		t.Fatalf("Ring().Len() = %d, want 1", k.Ring().Len())
	}
}

func TestSubscribePoolExhausted(t *testing.T) {
	k := New(Config{MaxSubscriptions: 2})
	q := k.Queue()

	for i := 0; i < 2; i++ {
		if err := q.Subscribe(1, FuncHandler(NewFunc(func(any) {}))); err != nil {
			t.Fatalf("Subscribe() #%d = %v", i, err)
		}
	}
	err := q.Subscribe(1, FuncHandler(NewFunc(func(any) {})))
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("Subscribe() = %v, want %v", err, ErrAllocation)
	}
}

func TestUnsubscribe(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	a, b := &recorder{}, &recorder{}

	_ = q.Subscribe(2, ReceiverHandler(a))
	_ = q.Subscribe(2, ReceiverHandler(b))

	if err := q.Unsubscribe(2, ReceiverHandler(a)); err != nil {
		t.Fatalf("Unsubscribe() = %v, want nil", err)
	}
	if err := q.Unsubscribe(2, ReceiverHandler(a)); err != ErrNotFound {
		t.Fatalf("Unsubscribe() again = %v, want %v", err, ErrNotFound)
	}

	_ = q.Post(2, "x", CallerOwns, TaskContext)
	q.DispatchBatch(4)
	if len(a.ids) != 0 || len(b.ids) != 1 {
		t.Fatalf("calls a=%d b=%d, want a=0 b=1", len(a.ids), len(b.ids))
	}
}

func TestUnsubscribeAllIDsIdempotent(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	r := &recorder{}
	other := &recorder{}

	for _, id := range []ID{0, 5, 25} {
		if err := q.Subscribe(id, ReceiverHandler(r)); err != nil {
			t.Fatalf("Subscribe(%d) = %v", id, err)
		}
	}
	_ = q.Subscribe(5, ReceiverHandler(other))

	if err := q.UnsubscribeAllIDs(ReceiverHandler(r)); err != nil {
		t.Fatalf("UnsubscribeAllIDs() = %v, want nil", err)
	}
	snapshot := make([]int, q.MaxID())
	for id := ID(0); id < q.MaxID(); id++ {
		snapshot[id] = q.Subscribers(id)
	}

	if err := q.UnsubscribeAllIDs(ReceiverHandler(r)); err != ErrNotFound {
		t.Fatalf("UnsubscribeAllIDs() again = %v, want %v", err, ErrNotFound)
	}
	for id := ID(0); id < q.MaxID(); id++ {
		if got := q.Subscribers(id); got != snapshot[id] {
			t.Fatalf("Subscribers(%d) = %d after second call, want %d", id, got, snapshot[id])
		}
	}
	if got := q.Subscribers(5); got != 1 {
		t.Fatalf("Subscribers(5) = %d, want 1", got)
	}
}

func TestPostDispatchScenario(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()

	var calls int
	var gotPayload any
	h := NewFunc(func(p any) {
		calls++
		gotPayload = p
	})
	if err := q.Subscribe(5, FuncHandler(h)); err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}

	p := &payload{}
	if err := q.Post(5, p, CallerOwns, TaskContext); err != nil {
		t.Fatalf("Post() = %v", err)
	}
	if n := q.DispatchBatch(1); n != 1 {
		t.Fatalf("DispatchBatch(1) = %d, want 1", n)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if gotPayload != p {
		t.Fatalf("payload = %v, want %p", gotPayload, p)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	if p.released != 0 {
		t.Fatalf("CallerOwns payload released %d times, want 0", p.released)
	}
}

func TestReceiverGetsID(t *testing.T) {
	k := newTestKernel()
	r := &recorder{}
	r.Init(k, r)
	if err := r.Subscribe(7); err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	_ = r.Post(7, 42, CallerOwns)
	k.Queue().DispatchBatch(1)
	if len(r.ids) != 1 || r.ids[0] != 7 || r.got[0] != 42 {
		t.Fatalf("EventHandler got ids=%v payloads=%v, want [7] [42]", r.ids, r.got)
	}
}

func TestPostRejectsSentinel(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	_ = q.Post(1, nil, CallerOwns, TaskContext)

	if err := q.Post(NoMessage, nil, CallerOwns, TaskContext); err != ErrInvalidID {
		t.Fatalf("Post(NoMessage) = %v, want %v", err, ErrInvalidID)
	}
	if err := q.Post(NoMessage, nil, CallerOwns, InterruptContext); err != ErrInvalidID {
		t.Fatalf("Post(NoMessage, interrupt) = %v, want %v", err, ErrInvalidID)
	}
	if err := q.Post(DefaultMaxMessageID, nil, CallerOwns, TaskContext); err != ErrInvalidID {
		t.Fatalf("Post(out of range) = %v, want %v", err, ErrInvalidID)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestPostFullQueue(t *testing.T) {
	k := New(Config{QueueDepth: 2})
	q := k.Queue()

	for i := 0; i < 2; i++ {
		if err := q.Post(1, i, CallerOwns, TaskContext); err != nil {
			t.Fatalf("Post() #%d = %v", i, err)
		}
	}
	if err := q.Post(1, 2, CallerOwns, TaskContext); err != ErrAllocation {
		t.Fatalf("Post() when full = %v, want %v", err, ErrAllocation)
	}
	if err := q.Post(1, 2, CallerOwns, InterruptContext); err != ErrAllocation {
		t.Fatalf("Post(interrupt) when full = %v, want %v", err, ErrAllocation)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

func TestDispatchOrderAndBatchBound(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()

	var log []string
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	_ = q.Subscribe(1, ReceiverHandler(a))
	_ = q.Subscribe(1, ReceiverHandler(b))
	seen := &recorder{name: "second", log: &log}
	_ = q.Subscribe(2, ReceiverHandler(seen))

	// The first message's handlers must all run before the second is popped.
	probe := NewFunc(func(p any) {
		if p != "A" {
			return
		}
		if got := q.Len(); got != 2 {
			t.Errorf("Len() during first dispatch = %d, want 2", got)
		}
	})
	_ = q.Subscribe(1, FuncHandler(probe))

	_ = q.Post(1, "A", CallerOwns, TaskContext)
	_ = q.Post(2, "B", CallerOwns, TaskContext)
	_ = q.Post(1, "C", CallerOwns, TaskContext)

	if n := q.DispatchBatch(2); n != 2 {
		t.Fatalf("DispatchBatch(2) = %d, want 2", n)
	}
	want := []string{"b", "a", "second"}
	if len(log) != len(want) {
		t.Fatalf("dispatch log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("dispatch log = %v, want %v", log, want)
		}
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if n := q.DispatchBatch(5); n != 1 {
		t.Fatalf("DispatchBatch(5) = %d, want 1", n)
	}
	if a.got[1] != "C" {
		t.Fatalf("last payload = %v, want C", a.got[1])
	}
}

func TestQueueOwnsReleasesOnce(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()
	_ = q.Subscribe(4, FuncHandler(NewFunc(func(any) {})))
	_ = q.Subscribe(4, FuncHandler(NewFunc(func(any) {})))

	p := &payload{}
	_ = q.Post(4, p, QueueOwns, TaskContext)

	// No subscribers: the payload is still released.
	orphan := &payload{}
	_ = q.Post(9, orphan, QueueOwns, TaskContext)

	q.DispatchBatch(10)
	if p.released != 1 {
		t.Fatalf("released = %d, want 1", p.released)
	}
	if orphan.released != 1 {
		t.Fatalf("orphan released = %d, want 1", orphan.released)
	}
}

func TestDispatchSnapshot(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()

	var log []string
	late := &recorder{name: "late", log: &log}
	victim := &recorder{name: "victim", log: &log}

	// Subscribed first, so it runs last.
	_ = q.Subscribe(1, ReceiverHandler(victim))
	killer := NewFunc(func(any) {
		log = append(log, "killer")
		_ = q.UnsubscribeAllIDs(ReceiverHandler(victim))
		_ = q.Subscribe(1, ReceiverHandler(late))
	})
	_ = q.Subscribe(1, FuncHandler(killer))

	_ = q.Post(1, nil, CallerOwns, TaskContext)
	_ = q.Post(1, nil, CallerOwns, TaskContext)
	q.DispatchBatch(2)

	want := []string{"killer", "late", "killer"}
	if len(log) != len(want) {
		t.Fatalf("dispatch log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("dispatch log = %v, want %v", log, want)
		}
	}
}

func TestDispatchNotReentrant(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()

	var nested int
	h := NewFunc(func(any) { nested += q.DispatchBatch(10) })
	_ = q.Subscribe(1, FuncHandler(h))
	_ = q.Post(1, nil, CallerOwns, TaskContext)
	_ = q.Post(1, nil, CallerOwns, TaskContext)

	if n := q.DispatchBatch(10); n != 2 {
		t.Fatalf("DispatchBatch() = %d, want 2", n)
	}
	if nested != 0 {
		t.Fatalf("nested DispatchBatch dispatched %d, want 0", nested)
	}
}

func TestPostMaskDiscipline(t *testing.T) {
	m := &countingMask{}
	k := newTestKernel(WithMask(m))
	q := k.Queue()

	_ = q.Post(1, "A", CallerOwns, TaskContext)
	_ = q.Post(1, "B", CallerOwns, InterruptContext)
	_ = q.Post(1, "C", CallerOwns, TaskContext)

	if m.disables != 2 || m.restores != 2 {
		t.Fatalf("mask disables=%d restores=%d, want 2/2", m.disables, m.restores)
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	var got []any
	_ = q.Subscribe(1, FuncHandler(NewFunc(func(p any) { got = append(got, p) })))
	q.DispatchBatch(10)
	want := []any{"A", "B", "C"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("dispatch order = %v, want %v", got, want)
		}
	}
}

func TestPostWhileMaskHeld(t *testing.T) {
	k := newTestKernel()
	q := k.Queue()

	if !q.g.acquire() {
		t.Fatal("acquire() = false, want true")
	}
	if err := q.Post(1, nil, CallerOwns, TaskContext); err != ErrMaskHeld {
		t.Fatalf("Post() while held = %v, want %v", err, ErrMaskHeld)
	}
	if err := q.Post(1, nil, CallerOwns, InterruptContext); err != nil {
		t.Fatalf("Post(interrupt) while held = %v, want nil", err)
	}
	q.g.release()

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

type isrMask struct {
	countingMask
	in bool
}

func (m *isrMask) InInterrupt() bool { return m.in }

func TestPostFromInterruptWithTaskContext(t *testing.T) {
	m := &isrMask{in: true}
	k := newTestKernel(WithMask(m))
	if err := k.Queue().Post(1, nil, CallerOwns, TaskContext); err != ErrMaskHeld {
		t.Fatalf("Post() = %v, want %v", err, ErrMaskHeld)
	}
	if m.disables != 0 {
		t.Fatalf("mask disables = %d, want 0", m.disables)
	}
}

// mutexMask models a single core: an interrupt handler runs with the mask held, so the main
// flow cannot be inside a masked section at the same time.
type mutexMask struct {
	mu sync.Mutex
}

func (m *mutexMask) Disable() uintptr { m.mu.Lock(); return 0 }
func (m *mutexMask) Restore(uintptr)  { m.mu.Unlock() }

func (m *mutexMask) raise(isr func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	isr()
}

func TestInterruptProducers(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(1)
	defer runtime.GOMAXPROCS(oldProcs)

	const (
		producers = 4
		perProd   = 500
		total     = producers*perProd + perProd
	)

	m := &mutexMask{}
	k := New(Config{QueueDepth: 64}, WithMask(m))
	q := k.Queue()

	type stamp struct{ producer, seq int }
	last := make([]int, producers+1)
	for i := range last {
		last[i] = -1
	}
	received := 0
	h := NewFunc(func(p any) {
		s := p.(stamp)
		if s.seq <= last[s.producer] {
			t.Errorf("producer %d: seq %d after %d", s.producer, s.seq, last[s.producer])
		}
		last[s.producer] = s.seq
		received++
	})
	_ = q.Subscribe(1, FuncHandler(h))

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProd; {
				var err error
				m.raise(func() { err = q.Post(1, stamp{p, i}, CallerOwns, InterruptContext) })
				if err == nil {
					i++
					continue
				}
				runtime.Gosched()
			}
		}(p)
	}
	close(start)

	for i := 0; i < perProd; {
		if err := q.Post(1, stamp{producers, i}, CallerOwns, TaskContext); err == nil {
			i++
		}
		q.DispatchBatch(4)
		runtime.Gosched()
	}
	for received < total {
		if q.DispatchBatch(8) == 0 {
			runtime.Gosched()
		}
	}
	wg.Wait()

	if q.DispatchBatch(8) != 0 {
		t.Fatal("DispatchBatch() found extra messages")
	}
	if received != total {
		t.Fatalf("received = %d, want %d", received, total)
	}
}
