package plant

import "sync"

// Registry maps a message type to the ordered list of reactions interested
// in it. Grounded on registry.Hub's Register/Unregister/IsConnected
// (concurrent map, idempotent unregister), generalized from "one cell per
// user" to "one ordered interest bucket per type".
type Registry struct {
	mu      sync.RWMutex
	buckets map[TypeKey][]*Reaction
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{buckets: make(map[TypeKey][]*Reaction)}
}

// Bind appends reaction to key's interest list in insertion order.
// Insertion order is preserved; it is the tie-break used by the scheduler
// when priority and emit time are equal (spec §3 Task ordering).
func (r *Registry) Bind(key TypeKey, reaction *Reaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[key] = append(r.buckets[key], reaction)
}

// Unbind removes reaction from key's interest list. It is a no-op if the
// reaction is not present, making repeated unbinds idempotent.
func (r *Registry) Unbind(key TypeKey, reaction *Reaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.buckets[key]
	for i, candidate := range list {
		if candidate == reaction {
			r.buckets[key] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Interested returns a snapshot of the reactions bound to key, in insertion
// order. The snapshot is taken under a read lock; the caller iterates it
// without holding any lock, so a concurrent Unbind that completes during
// iteration is only guaranteed visible on the *next* call to Interested, as
// required by spec §4.2.
func (r *Registry) Interested(key TypeKey) []*Reaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.buckets[key]
	out := make([]*Reaction, len(list))
	copy(out, list)
	return out
}
