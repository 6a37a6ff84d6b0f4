package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// withWord is a passive data dependency: it contributes an argument (the
// latest cached value of T) but never itself causes a task to be built. The
// reaction must have at least one triggering word (Trigger, Every, IO, ...)
// or it will never run.
type withWord[T any] struct{}

// With supplies T's latest cached value as an argument without subscribing
// to T's emissions.
func With[T any]() *withWord[T] { return &withWord[T]{} }

// Bind only grows T's history capacity to 1 (its default); With never
// registers with the reaction registry, so it never triggers the task
// constructor on its own.
func (w *withWord[T]) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	ctx.Plant.Cache().EnsureHistory(plant.KeyOf[T](), 1)
	return nil, nil
}

func (w *withWord[T]) Get(ctx *plant.GetCtx) (any, bool) {
	return ctx.Cache.GetLatest(plant.KeyOf[T]())
}
