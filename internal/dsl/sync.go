package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// syncWord gives the reaction mutually exclusive access to a named group:
// at most one task across every reaction sharing the group name executes at
// a time. Implements the reschedule/postcondition phases exactly as spec
// §4.5 describes SyncGroup.
type syncWord struct {
	name  string
	group *plant.SyncGroup
}

// Sync puts the annotated reaction's tasks into the named mutual-exclusion
// group, shared with every other reaction that names the same group.
func Sync(name string) *syncWord { return &syncWord{name: name} }

func (w *syncWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	w.group = ctx.Plant.SyncGroup(w.name)
	return nil, nil
}

func (w *syncWord) Reschedule(t *plant.Task) *plant.Task {
	return w.group.Reschedule(t)
}

func (w *syncWord) Postcondition(t *plant.Task) {
	w.group.Release()
}
