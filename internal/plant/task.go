package plant

import "time"

// TaskStats records the timing and outcome of one task execution, the
// payload behind the reserved ReactionStatistics message (spec §6).
type TaskStats struct {
	EmitTime   time.Time
	StartTime  time.Time
	FinishTime time.Time
	Exception  error
}

// Task is one scheduled invocation: a reaction plus a frozen argument
// tuple. See spec §3 "Task". Tasks are never mutated by more than one
// goroutine at a time, and once constructed only Stats is written (by the
// goroutine running the task), the Go-native stand-in for the source's
// move-only task values (see
// SPEC_FULL.md §9 open-question resolution).
type Task struct {
	ID       uint64
	Reaction *Reaction
	Cause    *Cause
	Args     []any
	Priority Priority
	PoolID   PoolID

	Stats TaskStats
}

// taskHeap implements container/heap.Interface, ordering tasks by
// (priority desc, emit time asc, task id asc) per spec §3. This is the one
// part of the scheduler built directly on the standard library: no
// third-party priority-queue library appears anywhere in the example pack,
// so container/heap is the idiomatic default rather than a deliberate
// fallback — see DESIGN.md.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.Stats.EmitTime.Equal(b.Stats.EmitTime) {
		return a.Stats.EmitTime.Before(b.Stats.EmitTime)
	}
	return a.ID < b.ID
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*Task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
