package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// poolWord assigns every task of the annotated reaction to a specific named
// pool instead of the default pool.
type poolWord struct {
	name        string
	concurrency int
}

// Pool routes the annotated reaction's tasks onto a dedicated pool named
// name, created with concurrency workers the first time any reaction names
// it (subsequent uses of the same name reuse the already-created pool).
func Pool(name string, concurrency int) *poolWord {
	return &poolWord{name: name, concurrency: concurrency}
}

func (w *poolWord) AssignPool(ctx *plant.BindCtx) plant.PoolID {
	return ctx.Plant.PoolByName(w.name, w.concurrency)
}

// mainThreadWord routes the annotated reaction's tasks onto the main pool:
// the single worker that is whichever goroutine called Plant.Start.
type mainThreadWord struct{}

// MainThread routes the annotated reaction's tasks onto the main pool.
func MainThread() *mainThreadWord { return &mainThreadWord{} }

func (mainThreadWord) AssignPool(ctx *plant.BindCtx) plant.PoolID { return plant.MainPoolID }
