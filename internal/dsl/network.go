package dsl

import (
	"encoding/json"

	"github.com/webitel/reactor-plant/internal/netservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

// NetworkMessage is what Network[T].Get exposes: the decoded payload plus
// the peer address it arrived from, matching spec §4.8's
// "{ source, payload: shared T }".
type NetworkMessage[T any] struct {
	Source  string
	Payload T
}

// networkWord bridges a typed Network<T> subscription to a
// netservice.Service: at bind time it installs a JSON decoder keyed by T's
// TypeKey (standing in for the spec's 128-bit wire type hash, see
// netservice.typeEntry); at get time it reads the most recent
// NetworkMessage[T] off the cache like any other Trigger.
type networkWord[T any] struct {
	svc *netservice.Service
}

// Network subscribes the annotated reaction to typed payloads of T
// received over svc, from any peer.
func Network[T any](svc *netservice.Service) plant.Word {
	return &networkWord[T]{svc: svc}
}

func (w *networkWord[T]) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	key := plant.KeyOf[T]()
	msgKey := plant.KeyOf[NetworkMessage[T]]()

	w.svc.RegisterType(key, func(payload []byte) (any, error) {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		return v, nil
	}, func(addr string, v any) {
		plant.Emit(ctx.Plant, NetworkMessage[T]{Source: addr, Payload: v.(T)})
	})

	ctx.Plant.Registry().Bind(msgKey, ctx.Reaction)
	return func() {
		w.svc.UnregisterType(key)
		ctx.Plant.Registry().Unbind(msgKey, ctx.Reaction)
	}, nil
}

func (w *networkWord[T]) Get(ctx *plant.GetCtx) (any, bool) {
	return ctx.Cache.GetLatest(plant.KeyOf[NetworkMessage[T]]())
}
