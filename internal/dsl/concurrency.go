package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// singleWord caps a reaction to at most one concurrently executing task. A
// new task built while one is already running is simply dropped (the
// open-question resolution recorded in SPEC_FULL.md §9: "Single" means
// at-most-one-concurrent, not at-most-one-attempt-ever).
type singleWord struct{}

// Single ensures no two tasks of the annotated reaction ever run at once.
func Single() *singleWord { return &singleWord{} }

func (singleWord) Precondition(ctx *plant.PreCtx) bool {
	return ctx.Reaction.ActiveTasks() == 0
}

// bufferWord caps concurrently executing tasks of the annotated reaction at
// n (n >= 1).
type bufferWord struct{ n int64 }

// Buffer allows up to n tasks of the annotated reaction to run at once.
func Buffer(n int) *bufferWord {
	if n < 1 {
		n = 1
	}
	return &bufferWord{n: int64(n)}
}

func (w *bufferWord) Precondition(ctx *plant.PreCtx) bool {
	return ctx.Reaction.ActiveTasks() < w.n
}
