// Package dsl implements the subscription words fused by Plant.On(...).Then(...)
// into a reaction's six phases. Every word here is a small value implementing
// one or more of plant's capability interfaces (Binder, Getter,
// Preconditioner, Prioritizer, Rescheduler, Postconditioner, PoolAssigner);
// dsl is the only package that imports plant for this purpose, never the
// other way around.
package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// triggerWord binds reaction interest in T and yields T's latest cached
// value as one argument. If T has never been emitted, this word's Get
// reports no data, so the reaction produces no task for any emission
// (including those of its other triggering words) until T is cached.
type triggerWord[T any] struct{}

// Trigger subscribes the reaction to T: every Local/Direct emission of T
// attempts to build a task, supplying the emitted value as this word's
// argument.
func Trigger[T any]() *triggerWord[T] { return &triggerWord[T]{} }

func (w *triggerWord[T]) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	key := plant.KeyOf[T]()
	ctx.Plant.Registry().Bind(key, ctx.Reaction)
	return func() { ctx.Plant.Registry().Unbind(key, ctx.Reaction) }, nil
}

func (w *triggerWord[T]) Get(ctx *plant.GetCtx) (any, bool) {
	return ctx.Cache.GetLatest(plant.KeyOf[T]())
}
