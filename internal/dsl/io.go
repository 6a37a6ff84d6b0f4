package dsl

import (
	"os"

	"github.com/webitel/reactor-plant/internal/ioservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

// IOEvent is delivered to the annotated reaction's Get whenever the
// registered descriptor becomes ready. Mask combines ioservice.Readable/
// Writable; Err is set on a CLOSE/ERROR condition, per spec §4.7.
type IOEvent struct {
	Mask ioservice.Mask
	Err  error
}

// ioWord bridges a single (fd, event_mask) subscription to an
// ioservice.Service. Unlike Trigger/Every, IO needs a concrete collaborator
// instance at construction time — there is one ioservice.Service per
// process, built alongside the plant and passed in by the caller, since
// plant cannot import ioservice without an import cycle (ioservice itself
// depends on plant to emit).
type ioWord struct {
	svc  *ioservice.Service
	f    *os.File
	mask ioservice.Mask
}

// IO subscribes to fd's readiness for mask on svc. On CLOSE/ERROR the
// reaction is automatically unbound, matching spec §4.7.
func IO(svc *ioservice.Service, f *os.File, mask ioservice.Mask) plant.Word {
	return &ioWord{svc: svc, f: f, mask: mask}
}

func (w *ioWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	r := ctx.Reaction
	cancel, err := w.svc.Register(w.f, w.mask, func(ev ioservice.Event) {
		ctx.Plant.DispatchDirect(r, IOEvent{Mask: ev.Mask, Err: ev.Err})
		if ev.Err != nil {
			r.Unbind()
		}
	})
	if err != nil {
		return nil, err
	}
	return plant.Unbinder(cancel), nil
}

func (w *ioWord) Get(ctx *plant.GetCtx) (any, bool) {
	if ev, ok := ctx.Extra.(IOEvent); ok {
		return ev, true
	}
	return nil, false
}
