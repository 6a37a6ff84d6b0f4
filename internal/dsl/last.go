package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// lastWord triggers on T and supplies up to n of its most recent values,
// newest first, as a []T argument. Implemented as its own triggering word
// (rather than a generic wrapper around Trigger) because Go generics can't
// cleanly re-type an arbitrary inner Getter's single-value result into a
// slice of that same inferred type.
type lastWord[T any] struct {
	n int
}

// Last subscribes to T and supplies its n most recent values (newest
// first). Produces no task until at least one T has been cached.
func Last[T any](n int) *lastWord[T] {
	if n < 1 {
		n = 1
	}
	return &lastWord[T]{n: n}
}

func (w *lastWord[T]) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	key := plant.KeyOf[T]()
	ctx.Plant.Cache().EnsureHistory(key, w.n)
	ctx.Plant.Registry().Bind(key, ctx.Reaction)
	return func() { ctx.Plant.Registry().Unbind(key, ctx.Reaction) }, nil
}

func (w *lastWord[T]) Get(ctx *plant.GetCtx) (any, bool) {
	raw := ctx.Cache.GetHistory(plant.KeyOf[T](), w.n)
	if len(raw) == 0 {
		return nil, false
	}
	out := make([]T, len(raw))
	for i, v := range raw {
		out[i] = v.(T)
	}
	return out, true
}
