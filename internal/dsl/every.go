package dsl

import (
	"time"

	"github.com/webitel/reactor-plant/internal/plant"
)

// Tick is delivered to the annotated reaction on every period elapsed,
// carrying the deadline the timer service scheduled for (not time.Now(),
// so a reaction can detect how late it was actually run).
type Tick struct{ Deadline time.Time }

// everyWord triggers the annotated reaction once per period, driven by the
// plant's chrono service rather than the type registry.
type everyWord struct {
	period time.Duration
	cancel func()
}

// Every triggers the annotated reaction once every period, independent of
// any message emission. The source's Every<n, unit> is Every(n*unit), and
// its Every<n, Per<unit>> is Every(unit/n).
func Every(period time.Duration) *everyWord { return &everyWord{period: period} }

func (w *everyWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	r := ctx.Reaction
	p := ctx.Plant
	_, cancel := p.Chrono().Register(w.period, func(deadline time.Time) {
		p.DispatchDirect(r, Tick{Deadline: deadline})
	})
	w.cancel = cancel
	return cancel, nil
}

func (w *everyWord) Get(ctx *plant.GetCtx) (any, bool) {
	if tick, ok := ctx.Extra.(Tick); ok {
		return tick, true
	}
	return nil, false
}
