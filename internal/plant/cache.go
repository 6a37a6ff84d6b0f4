package plant

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheEntry holds the most recent value for one message type plus a
// bounded, newest-first history ring. Modeled on registry.Hub's per-key
// sync.Map entries in the teacher, generalized from "one cell per user" to
// "one entry per message type".
type cacheEntry struct {
	mu       sync.RWMutex
	latest   any
	hasValue bool
	history  []any // newest first, len <= capacity
	capacity int
}

func newCacheEntry() *cacheEntry {
	return &cacheEntry{capacity: 1}
}

func (e *cacheEntry) store(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = v
	e.hasValue = true
	e.history = append([]any{v}, e.history...)
	if len(e.history) > e.capacity {
		e.history = e.history[:e.capacity]
	}
}

func (e *cacheEntry) getLatest() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest, e.hasValue
}

func (e *cacheEntry) getHistory(n int) []any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n > len(e.history) {
		n = len(e.history)
	}
	out := make([]any, n)
	copy(out, e.history[:n])
	return out
}

func (e *cacheEntry) ensureCapacity(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > e.capacity {
		e.capacity = n
	}
}

// Cache is the per-type latest-value + bounded-history store, plus the
// producer-linked side channel read by Cache.Linked. See
// SPEC_FULL.md §4.1.
type Cache struct {
	mu      sync.RWMutex
	entries map[TypeKey]*cacheEntry

	// linked records, for a producing task id, the values it emitted while
	// running, keyed by type. Once a producing task's cell of linked
	// values is no longer reachable from any live cause chain it is simply
	// garbage (small bounded LRU keeps it from growing unbounded across a
	// long-running process).
	linkedMu sync.Mutex
	linked   *lru.Cache[uint64, map[TypeKey]any]
}

// NewCache constructs an empty Cache. linkedCapacity bounds how many
// producer task ids keep a linked-value side channel alive at once; the
// teacher wires hashicorp/golang-lru the same way in PeerEnricher, reused
// here for the linked-value table instead of a hand-rolled eviction scheme.
// The per-type history ring is a plain slice trimmed to its capacity.
func NewCache(linkedCapacity int) *Cache {
	if linkedCapacity <= 0 {
		linkedCapacity = 4096
	}
	l, _ := lru.New[uint64, map[TypeKey]any](linkedCapacity)
	return &Cache{
		entries: make(map[TypeKey]*cacheEntry),
		linked:  l,
	}
}

func (c *Cache) entryFor(key TypeKey) *cacheEntry {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e
	}
	e = newCacheEntry()
	c.entries[key] = e
	return e
}

// Store replaces latest and pushes onto history for key.
func (c *Cache) Store(key TypeKey, value any) {
	c.entryFor(key).store(value)
}

// GetLatest returns the current latest value for key, or ok == false if
// nothing has ever been stored ("no-data").
func (c *Cache) GetLatest(key TypeKey) (any, bool) {
	return c.entryFor(key).getLatest()
}

// GetHistory returns up to n values for key, newest first.
func (c *Cache) GetHistory(key TypeKey, n int) []any {
	return c.entryFor(key).getHistory(n)
}

// EnsureHistory grows key's ring capacity to at least n.
func (c *Cache) EnsureHistory(key TypeKey, n int) {
	c.entryFor(key).ensureCapacity(n)
}

// Link records that value of type key was produced while producerTaskID was
// running. A later Cache.Linked lookup whose cause chain includes
// producerTaskID receives this value in preference to the global latest.
func (c *Cache) Link(key TypeKey, producerTaskID uint64, value any) {
	c.linkedMu.Lock()
	defer c.linkedMu.Unlock()
	m, ok := c.linked.Get(producerTaskID)
	if !ok {
		m = make(map[TypeKey]any)
	}
	m[key] = value
	c.linked.Add(producerTaskID, m)
}

// Linked walks the cause chain looking for a value of type key tagged by
// Link; if the chain is broken or exhausted without a match it falls back
// to the global latest, per the Open Question resolution recorded in
// SPEC_FULL.md §9.
func (c *Cache) Linked(key TypeKey, cause *Cause) (any, bool) {
	for cur := cause; cur != nil; cur = cur.Parent {
		c.linkedMu.Lock()
		m, ok := c.linked.Get(cur.TaskID)
		c.linkedMu.Unlock()
		if !ok {
			continue
		}
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return c.GetLatest(key)
}
