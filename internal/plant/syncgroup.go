package plant

import (
	"container/heap"
	"sync"
)

// SyncGroup is a named mutual-exclusion group. At most one task belonging
// to the group executes at any moment; a task that cannot acquire the
// group is parked on its queue and resubmitted by the postcondition of the
// task currently running. See spec §4.5.
//
// Each group owns exactly one mutex and nothing else ever locks it, mirroring
// the teacher's one-mutex-per-resource idiom (registry.Cell.mu,
// registry.connect.closeOnce).
type SyncGroup struct {
	mu     sync.Mutex
	active bool
	queue  taskHeap
}

func newSyncGroup() *SyncGroup {
	sg := &SyncGroup{}
	heap.Init(&sg.queue)
	return sg
}

// tryAcquire implements the Sync word's reschedule phase: acquire the
// group; if busy, park t and return nil; else mark active and return t.
func (g *SyncGroup) tryAcquire(t *Task) *Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		heap.Push(&g.queue, t)
		return nil
	}
	g.active = true
	return t
}

// release implements the Sync word's postcondition phase: free the group,
// then pop the next queued task (if any) and return it for resubmission.
// The group is marked free *before* handoff, not after, so the resubmitted
// task re-acquires it the ordinary way (tryAcquire) instead of being handed
// a phantom hold — resubmission re-enters runTask, which re-runs every
// rescheduler including this one, so anything handed off already "active"
// would immediately re-park itself with no running task left to ever
// release it.
func (g *SyncGroup) release() *Task {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
	if g.queue.Len() > 0 {
		return heap.Pop(&g.queue).(*Task)
	}
	return nil
}

// drain empties the group's queue, discarding parked tasks. Called at
// shutdown per spec §4.5 step 5.
func (g *SyncGroup) drain() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.queue.Len()
	g.queue = nil
	heap.Init(&g.queue)
	g.active = false
	return n
}

// Reschedule is the exported form of tryAcquire, called by the Sync word
// (package dsl) from its own Reschedule phase.
func (g *SyncGroup) Reschedule(t *Task) *Task { return g.tryAcquire(t) }

// Release is the exported form of release: it pops the next parked task (if
// any) and resubmits it through the owning plant, or marks the group free.
// Called by the Sync word's Postcondition phase.
func (g *SyncGroup) Release() {
	next := g.release()
	if next != nil {
		next.Reaction.Plant().Resubmit(next)
	}
}

// syncGroups is the plant-owned registry of named sync groups, looked up
// (and lazily inserted) at bind time by the Sync word.
type syncGroups struct {
	mu     sync.Mutex
	groups map[string]*SyncGroup
}

func newSyncGroups() *syncGroups {
	return &syncGroups{groups: make(map[string]*SyncGroup)}
}

func (s *syncGroups) get(name string) *SyncGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		g = newSyncGroup()
		s.groups[name] = g
	}
	return g
}

func (s *syncGroups) all() []*SyncGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SyncGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out
}
