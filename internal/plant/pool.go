package plant

import (
	"container/heap"
	"sync"
)

// Pool is a named group of dedicated workers. Invariant: at most
// Concurrency tasks from this pool run concurrently (spec §3 "ThreadPool").
//
// The dispatch loop and its batched-wake idiom are grounded on
// registry.Cell.loop in the teacher: one goroutine per worker, parked on a
// condition variable (sync.Cond) until woken, then
// draining as much ready work as it can find before going back to sleep.
type Pool struct {
	id          PoolID
	name        string
	concurrency int

	mu       sync.Mutex
	cond     *sync.Cond
	ready    taskHeap // normal priority queue
	idle     taskHeap // PriorityIdle tasks: only consulted when every worker is idle
	draining bool
	live     bool
	busy     int // workers currently inside dispatch(t); guards the idle tail queue

	wg sync.Mutex // not locked by any Pool method

	statsCb func(*Task)
}

// NewPool constructs a live pool with the given worker concurrency
// (clamped to >= 1, per spec §6 configuration table).
func NewPool(id PoolID, name string, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	p := &Pool{id: id, name: name, concurrency: concurrency, live: true}
	p.cond = sync.NewCond(&p.mu)
	heap.Init(&p.ready)
	heap.Init(&p.idle)
	return p
}

// Name returns the pool's diagnostic name ("default" for the default pool,
// "main" for the main pool).
func (p *Pool) Name() string { return p.name }

// ID returns the pool's id.
func (p *Pool) ID() PoolID { return p.id }

// Submit enqueues t and wakes at most one worker.
func (p *Pool) Submit(t *Task) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return
	}
	if t.Priority == PriorityIdle {
		heap.Push(&p.idle, t)
	} else {
		heap.Push(&p.ready, t)
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// next pops the highest-priority ready task, blocking until one is
// available or the pool starts draining with an empty queue (in which case
// it returns nil, false). The idle tail queue is only consulted when ready
// is empty *and* no worker of this pool is currently executing a task —
// "every worker of their pool would otherwise be idle" per spec §4.5 — not
// merely when this one worker's own scan of ready came up empty.
func (p *Pool) next() (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.ready.Len() > 0 {
			return heap.Pop(&p.ready).(*Task), true
		}
		if p.idle.Len() > 0 && p.busy == 0 {
			return heap.Pop(&p.idle).(*Task), true
		}
		if p.draining {
			return nil, false
		}
		p.cond.Wait()
	}
}

// markBusy adjusts the count of workers currently executing a task. A
// decrement wakes waiters so a worker blocked waiting on idle work re-checks
// now that this worker may have gone idle itself.
func (p *Pool) markBusy(delta int) {
	p.mu.Lock()
	p.busy += delta
	p.mu.Unlock()
	if delta < 0 {
		p.cond.Broadcast()
	}
}

// Drain marks the pool draining and wakes every worker so it can observe
// the empty-queue exit condition.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Discard empties both queues, returning how many tasks were dropped.
// Plant.Shutdown does not call it: draining workers run every task already
// queued before exiting, and Submit rejects new tasks once draining.
func (p *Pool) Discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.ready.Len() + p.idle.Len()
	p.ready, p.idle = nil, nil
	heap.Init(&p.ready)
	heap.Init(&p.idle)
	return n
}

// QueueDepth reports current queue occupancy, for admin/introspection.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready.Len() + p.idle.Len()
}

// run is the per-worker dispatch loop described in spec §4.5.
func (p *Pool) run(dispatch func(*Task)) {
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.markBusy(1)
		dispatch(t)
		p.markBusy(-1)
	}
}
