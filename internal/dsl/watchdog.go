package dsl

import (
	"time"

	"github.com/webitel/reactor-plant/internal/plant"
)

// WatchdogExpired is delivered to the annotated reaction when timeout
// elapses without an EmitScope(Watchdog, T) reset. See
// SPEC_FULL.md "Supplemented features".
type WatchdogExpired[T any] struct{ Timeout time.Duration }

// watchdogWord arms a reset-on-activity deadline keyed on T. Every
// EmitScope(Watchdog, v) where v is a T pushes the deadline out again.
type watchdogWord[T any] struct {
	timeout time.Duration
	unbind  plant.Unbinder
}

// Watchdog triggers the annotated reaction with WatchdogExpired[T] if
// timeout elapses without a matching Watchdog-scope reset.
func Watchdog[T any](timeout time.Duration) *watchdogWord[T] {
	return &watchdogWord[T]{timeout: timeout}
}

func (w *watchdogWord[T]) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	r := ctx.Reaction
	p := ctx.Plant
	w.unbind = p.RegisterWatchdog(r, plant.KeyOf[T](), w.timeout, func() {
		p.DispatchDirect(r, WatchdogExpired[T]{Timeout: w.timeout})
	})
	return w.unbind, nil
}

// Get only ever succeeds for the DispatchDirect call the watchdog's own
// expiry fires; ordinary Local/Direct emissions never reach it, since
// Watchdog never registers with the type registry.
func (w *watchdogWord[T]) Get(ctx *plant.GetCtx) (any, bool) {
	if exp, ok := ctx.Extra.(WatchdogExpired[T]); ok {
		return exp, true
	}
	return nil, false
}
