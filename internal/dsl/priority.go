package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// priorityWord fixes the effective priority of every task the annotated
// reaction produces.
type priorityWord struct{ p plant.Priority }

// Priority overrides the default (Normal) priority for the annotated
// reaction's tasks.
func Priority(p plant.Priority) *priorityWord { return &priorityWord{p: p} }

func (w *priorityWord) EffectivePriority(ctx *plant.PreCtx) plant.Priority { return w.p }
