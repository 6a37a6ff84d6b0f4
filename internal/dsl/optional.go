package dsl

import "github.com/webitel/reactor-plant/internal/plant"

// Option is the argument Optional(inner) contributes: Present reports
// whether inner produced data on this attempt.
type Option struct {
	Value   any
	Present bool
}

// OptionValue type-asserts o.Value, for convenience inside a callback that
// knows the wrapped word's type.
func OptionValue[T any](o Option) (T, bool) {
	if !o.Present {
		var zero T
		return zero, false
	}
	v, ok := o.Value.(T)
	return v, ok
}

// optionalWord wraps another word so that its absence never cancels the
// task: Get always succeeds, carrying whether the inner word actually had
// data. Forwards Bind to the inner word if it has bind-time side effects
// (e.g. wrapping Trigger still needs to register interest).
type optionalWord struct {
	inner plant.Word
}

// Optional makes inner's absence non-fatal to task construction. inner is
// typically a Trigger[T]() or With[T]() value; the callback recovers the
// original type with OptionValue[T].
func Optional(inner plant.Word) *optionalWord { return &optionalWord{inner: inner} }

func (w *optionalWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	if b, ok := w.inner.(plant.Binder); ok {
		return b.Bind(ctx)
	}
	return nil, nil
}

func (w *optionalWord) Get(ctx *plant.GetCtx) (any, bool) {
	g, ok := w.inner.(plant.Getter)
	if !ok {
		return Option{Present: false}, true
	}
	v, ok := g.Get(ctx)
	return Option{Value: v, Present: ok}, true
}
