package plant

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// ReactionFunc is the fully fused user callback: args holds one element per
// Getter-contributing word, in declaration order.
type ReactionFunc func(ctx *Context, args []any) error

// phases is the fixed-shape, compile-time (subscription-time) composition
// of an ordered word list into the six hook phases described in
// SPEC_FULL.md §4.3. Flattening the word list into parallel slices once, at
// Then(), is the Go-native replacement for the source's recursive
// variadic-template fusion (see spec §9 re-architecture note).
type phases struct {
	getters       []Getter
	preconditions []Preconditioner
	prioritizers  []Prioritizer
	reschedulers  []Rescheduler
	postcond      []Postconditioner
}

// Reaction is one durable subscription: DSL words fused into six phases,
// plus a user callback and a handle. See spec §3 "Reaction".
type Reaction struct {
	id    uint64
	label string

	plant *Plant

	enabled     atomic.Bool
	activeTasks atomic.Int64

	poolID      PoolID
	words       []Word
	phases      phases
	callback    ReactionFunc

	unbindMu sync.Mutex
	unbound  bool
	unbinds  []Unbinder

	logLevel slog.Level
}

// ID returns the process-unique, monotonically assigned reaction id.
func (r *Reaction) ID() uint64 { return r.id }

// Label returns the reaction's diagnostic label.
func (r *Reaction) Label() string { return r.label }

// Enabled reports whether the reaction currently accepts new tasks.
func (r *Reaction) Enabled() bool { return r.enabled.Load() }

// ActiveTasks reports how many tasks of this reaction are currently
// executing (parked sync-queue entries do not count, per spec §4.5).
func (r *Reaction) ActiveTasks() int64 { return r.activeTasks.Load() }

// Plant returns the owning plant, for words (package dsl) whose
// postcondition needs to resubmit a task it dequeued itself (e.g. Sync).
func (r *Reaction) Plant() *Plant { return r.plant }

// PoolID returns the pool this reaction's tasks are submitted to.
func (r *Reaction) PoolID() PoolID { return r.poolID }

// ReactionHandle is a detachable reference to a reaction exposing
// enable/disable/unbind. Unbinding is idempotent; in-flight tasks run to
// completion. Grounded on registry.connect's sync.Once-guarded Close, the
// teacher's idiom for "exactly once, safe from any caller" teardown.
type ReactionHandle struct {
	reaction *Reaction
}

// Enable makes the reaction eligible for dispatch again.
func (h *ReactionHandle) Enable() { h.reaction.enabled.Store(true) }

// Disable makes the task constructor drop every subsequent attempt for this
// reaction; in-flight tasks are unaffected.
func (h *ReactionHandle) Disable() { h.reaction.enabled.Store(false) }

// Unbind removes the reaction from every index and runs its unbinders in
// reverse declaration order. Idempotent.
func (h *ReactionHandle) Unbind() { h.reaction.Unbind() }

// Unbind is the handle-free form, for a word whose own callback (e.g. an
// IO service reporting CLOSE/ERROR) needs to tear the owning reaction down
// without holding a ReactionHandle. Idempotent.
func (r *Reaction) Unbind() {
	r.unbindMu.Lock()
	if r.unbound {
		r.unbindMu.Unlock()
		return
	}
	r.unbound = true
	unbinds := r.unbinds
	r.unbindMu.Unlock()

	r.enabled.Store(false)
	for i := len(unbinds) - 1; i >= 0; i-- {
		unbinds[i]()
	}
}

// ID exposes the bound reaction's id for admin/introspection surfaces.
func (h *ReactionHandle) ID() uint64 { return h.reaction.ID() }

// Label exposes the bound reaction's label.
func (h *ReactionHandle) Label() string { return h.reaction.Label() }
