// Package plant implements the dispatch engine: the typed cache, reaction
// registry, task constructor and scheduler described by the runtime's
// design. DSL words (package dsl) are built against the capability
// interfaces declared here; the plant package never imports dsl, so a word
// can only ever be a value that happens to implement one or more of
// Binder, Getter, Preconditioner, Prioritizer, Rescheduler, Postconditioner
// or PoolAssigner.
package plant

import (
	"fmt"
	"reflect"
)

// TypeKey identifies a message type. Reflection's *reflect.Type already is
// the dense, comparable, hashable identity Go offers for a static type; a
// synthetic integer tag would only reproduce what the runtime already gives
// us for free, at the cost of a registration step every message type would
// otherwise need.
type TypeKey = reflect.Type

// KeyOf returns the TypeKey for T.
func KeyOf[T any]() TypeKey {
	return reflect.TypeFor[T]()
}

// Priority is the effective scheduling priority of a task, ordered low to
// high.
type Priority int

const (
	PriorityIdle Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityRealtime
)

func (p Priority) String() string {
	switch p {
	case PriorityIdle:
		return "idle"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityRealtime:
		return "realtime"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Scope selects the emission policy for a value. See SPEC_FULL.md §6.
type Scope int

const (
	ScopeLocal Scope = iota
	ScopeDirect
	ScopeInitialize
	ScopeWatchdog
	ScopeUDP
	ScopeNetwork
)

// PoolID identifies a worker pool. The default (unnamed) pool is PoolID(0);
// the main pool (the goroutine that called Start) is PoolID(1).
type PoolID uint32

const (
	DefaultPoolID PoolID = 0
	MainPoolID    PoolID = 1
)

// Cause is the task, if any, whose execution led to the emission that
// produced the current task. It is a linked chain so that Cache.Linked can
// walk producer ancestry looking for a value tagged along the way.
type Cause struct {
	ReactionID uint64
	TaskID     uint64
	Parent     *Cause
}

// Word is any value contributed to an on(...) subscription. The plant
// package only ever interacts with a Word through the capability
// interfaces below; a concrete word (package dsl) implements whichever
// subset of them its semantics require.
type Word = any

// Unbinder is returned by Binder.Bind and invoked, in reverse declaration
// order, when the owning reaction is unbound.
type Unbinder func()

// BindCtx is supplied to a word's Bind method once, at subscription time.
type BindCtx struct {
	Plant    *Plant
	Reaction *Reaction
}

// GetCtx is supplied to a word's Get method on every emission considered
// for the reaction. Extra carries whatever contextual payload the
// triggering service (IO, network, chrono) attached to this particular
// dispatch; it is nil for ordinary Local/Direct cache-driven emissions.
type GetCtx struct {
	Cache *Cache
	Cause *Cause
	Extra any
}

// PreCtx is supplied to a word's Precondition/EffectivePriority methods
// after Get has produced an argument tuple.
type PreCtx struct {
	Reaction *Reaction
	Args     []any
}

// Binder contributes bind-time side effects (registering interest, timer
// intervals, file descriptors, network deserializers, ...). It returns an
// Unbinder undoing exactly those side effects.
type Binder interface {
	Bind(ctx *BindCtx) (Unbinder, error)
}

// Getter contributes one element of the argument tuple presented to the
// user callback. ok == false means "no data"; unless the word is wrapped in
// Optional, a single absent Getter cancels the whole task.
type Getter interface {
	Get(ctx *GetCtx) (value any, ok bool)
}

// Preconditioner returns false to drop the task after Get has succeeded.
type Preconditioner interface {
	Precondition(ctx *PreCtx) bool
}

// Prioritizer returns the effective priority for the task being built.
type Prioritizer interface {
	EffectivePriority(ctx *PreCtx) Priority
}

// Rescheduler is the last chance to intercept a ready task. Returning nil
// parks the task (e.g. on a sync group's queue) instead of submitting it.
type Rescheduler interface {
	Reschedule(t *Task) *Task
}

// Postconditioner runs after the user callback returns, successfully or
// not. Sync words use it to release their group and resubmit the next
// queued task.
type Postconditioner interface {
	Postcondition(t *Task)
}

// PoolAssigner overrides the pool a task is submitted to.
type PoolAssigner interface {
	AssignPool(ctx *BindCtx) PoolID
}
