package plant

import (
	"sync/atomic"
	"time"
)

var nextTaskID atomic.Uint64

// construct runs the task constructor algorithm of spec §4.4: snapshot
// enabled, run get, build the task, run precondition. It never panics and
// never returns an error to the caller; a reaction that cannot produce a
// task simply contributes nothing to this emission.
//
// Spec §4.4 step 2's transient merge (absent-but-remembered data, e.g.
// Last<N>'s "remember across emissions" requirement from the glossary) is
// realized by Last itself reading the cache's own bounded history
// (internal/dsl/last.go) rather than a separate per-reaction store here:
// one mechanism, not two competing ones.
func construct(r *Reaction, cache *Cache, cause *Cause, extra any) *Task {
	if !r.enabled.Load() {
		return nil
	}

	getCtx := &GetCtx{Cache: cache, Cause: cause, Extra: extra}
	args := make([]any, 0, len(r.phases.getters))
	for _, g := range r.phases.getters {
		value, ok := g.Get(getCtx)
		if !ok {
			return nil // no-data: task silently not produced
		}
		args = append(args, value)
	}

	t := &Task{
		ID:       nextTaskID.Add(1),
		Reaction: r,
		Cause:    cause,
		Args:     args,
		Priority: PriorityNormal,
		PoolID:   r.poolID,
	}
	t.Stats.EmitTime = time.Now()

	preCtx := &PreCtx{Reaction: r, Args: args}
	for _, pr := range r.phases.prioritizers {
		t.Priority = pr.EffectivePriority(preCtx)
	}
	for _, pc := range r.phases.preconditions {
		if !pc.Precondition(preCtx) {
			return nil // precondition failed: task silently not produced
		}
	}

	return t
}
