package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// Startup subscribes to the reserved StartupMessage, emitted once when
// Plant.Start finishes running every Initialize-scope emission.
func Startup() *triggerWord[plant.StartupMessage] { return Trigger[plant.StartupMessage]() }

// Shutdown subscribes to the reserved ShutdownMessage, emitted once when
// Plant.Shutdown is called.
func Shutdown() *triggerWord[plant.ShutdownMessage] { return Trigger[plant.ShutdownMessage]() }

// alwaysWord marks a reaction to run repeatedly for as long as the plant is
// running, with at most one instance of it executing at a time.
type alwaysWord struct{}

// Always runs the annotated reaction continuously from Start until
// Shutdown, never overlapping itself. It supplies no arguments of its own;
// combine it with With[T]() words to read the latest cache state each
// iteration.
func Always() *alwaysWord { return &alwaysWord{} }

func (alwaysWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	ctx.Plant.RegisterAlways(ctx.Reaction)
	return nil, nil
}

// Always reactions always "get" an argument-less trigger: Get never fails,
// there is simply nothing interesting to report back.
func (alwaysWord) Get(ctx *plant.GetCtx) (any, bool) { return struct{}{}, true }
