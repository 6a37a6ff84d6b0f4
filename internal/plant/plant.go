package plant

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/reactor-plant/internal/chrono"
)

// Config configures a Plant. See spec §6 "Configuration options".
type Config struct {
	// DefaultPoolConcurrency sizes the unnamed pool (1..∞).
	DefaultPoolConcurrency int
	// Logger receives structured diagnostics; defaults to slog.Default().
	Logger *slog.Logger
	// LinkedCacheCapacity bounds the cache's producer-linked side table.
	LinkedCacheCapacity int
	// OnStatistics, if set, is invoked after every ReactionStatistics
	// emission in addition to the normal Local-scope delivery — the
	// attachment point internal/obs uses to export OTel metrics.
	OnStatistics func(ReactionStatistics)
}

// Plant is the process-wide object owning the cache, registry, pools and
// sync groups. See spec §2 "System Overview".
type Plant struct {
	cache    *Cache
	registry *Registry
	sync     *syncGroups
	chrono   *chrono.Service

	poolsMu    sync.RWMutex
	pools      map[PoolID]*Pool
	poolNames  map[string]PoolID
	nextPoolID atomic.Uint32

	nextReactionID atomic.Uint64
	reactionsMu    sync.RWMutex
	reactions      map[uint64]*Reaction

	initMu    sync.Mutex
	initQueue []func()

	alwaysMu  sync.Mutex
	always    []*Reaction

	watchdogMu sync.Mutex
	watchdogs  map[watchdogKey]*watchdogEntry

	running atomic.Bool
	wg      sync.WaitGroup

	logger     *slog.Logger
	onStats    func(ReactionStatistics)

	networkSinkMu sync.RWMutex
	networkSink   func(scope Scope, value any)
}

// New constructs a Plant. The default pool is created eagerly with
// cfg.DefaultPoolConcurrency workers (clamped to >= 1); the main pool
// (exactly one worker: whichever goroutine calls Start) is created
// lazily by Start.
func New(cfg Config) *Plant {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plant{
		cache:     NewCache(cfg.LinkedCacheCapacity),
		registry:  NewRegistry(),
		sync:      newSyncGroups(),
		chrono:    chrono.NewService(),
		pools:     make(map[PoolID]*Pool),
		poolNames: make(map[string]PoolID),
		reactions: make(map[uint64]*Reaction),
		watchdogs: make(map[watchdogKey]*watchdogEntry),
		logger:    logger,
		onStats:   cfg.OnStatistics,
	}
	concurrency := cfg.DefaultPoolConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	p.pools[DefaultPoolID] = NewPool(DefaultPoolID, "default", concurrency)
	p.nextPoolID.Store(uint32(MainPoolID) + 1)
	return p
}

// SetNetworkSink installs the collaborator that handles ScopeUDP/
// ScopeNetwork emissions (package netservice's Service, typically). Plant
// cannot import netservice directly without an import cycle (netservice
// depends on plant to emit received packets), so the collaborator registers
// itself here instead, the same inversion chrono.Service's caller-supplied
// callback uses.
func (p *Plant) SetNetworkSink(fn func(scope Scope, value any)) {
	p.networkSinkMu.Lock()
	p.networkSink = fn
	p.networkSinkMu.Unlock()
}

// Cache exposes the data cache to DSL words.
func (p *Plant) Cache() *Cache { return p.cache }

// Registry exposes the reaction registry to DSL words.
func (p *Plant) Registry() *Registry { return p.registry }

// SyncGroup looks up (lazily creating) the named sync group.
func (p *Plant) SyncGroup(name string) *SyncGroup { return p.sync.get(name) }

// Chrono exposes the plant's timer service to timer-driven words (Every).
func (p *Plant) Chrono() *chrono.Service { return p.chrono }

// Logger returns the plant's structured logger.
func (p *Plant) Logger() *slog.Logger { return p.logger }

// PoolByName returns the id of the named pool, creating it with the given
// concurrency (clamped to >= 1) the first time it is requested.
func (p *Plant) PoolByName(name string, concurrency int) PoolID {
	p.poolsMu.Lock()
	defer p.poolsMu.Unlock()
	if id, ok := p.poolNames[name]; ok {
		return id
	}
	id := PoolID(p.nextPoolID.Add(1))
	p.poolNames[name] = id
	p.pools[id] = NewPool(id, name, concurrency)
	return id
}

func (p *Plant) poolFor(id PoolID) *Pool {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()
	if pool, ok := p.pools[id]; ok {
		return pool
	}
	return p.pools[DefaultPoolID]
}

// Pools returns a snapshot of all pools, for admin/introspection.
func (p *Plant) Pools() []*Pool {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()
	out := make([]*Pool, 0, len(p.pools))
	for _, pool := range p.pools {
		out = append(out, pool)
	}
	return out
}

// Reactions returns a snapshot of every live reaction, for admin/introspection.
func (p *Plant) Reactions() []*Reaction {
	p.reactionsMu.RLock()
	defer p.reactionsMu.RUnlock()
	out := make([]*Reaction, 0, len(p.reactions))
	for _, r := range p.reactions {
		out = append(out, r)
	}
	return out
}

// Running reports whether the plant is between Start and Shutdown.
func (p *Plant) Running() bool { return p.running.Load() }

// ---- subscription building ----------------------------------------------

// Builder accumulates words for one subscription.
type Builder struct {
	plant *Plant
	words []Word
}

// On begins a subscription built from words, fused left to right.
func (p *Plant) On(words ...Word) *Builder {
	return &Builder{plant: p, words: words}
}

// Then fuses the accumulated words, runs every Binder, and installs the
// reaction. See spec §4.3 "Fusion rules" and §4.4.
func (b *Builder) Then(label string, fn ReactionFunc) (*ReactionHandle, error) {
	p := b.plant
	r := &Reaction{
		id:       p.nextReactionID.Add(1),
		label:    label,
		plant:    p,
		words:    b.words,
		callback: fn,
		poolID:   DefaultPoolID,
		logLevel: slog.LevelInfo,
	}
	r.enabled.Store(true)

	for _, w := range b.words {
		if g, ok := w.(Getter); ok {
			r.phases.getters = append(r.phases.getters, g)
		}
		if pc, ok := w.(Preconditioner); ok {
			r.phases.preconditions = append(r.phases.preconditions, pc)
		}
		if pr, ok := w.(Prioritizer); ok {
			r.phases.prioritizers = append(r.phases.prioritizers, pr)
		}
		if rs, ok := w.(Rescheduler); ok {
			r.phases.reschedulers = append(r.phases.reschedulers, rs)
		}
		if pc, ok := w.(Postconditioner); ok {
			r.phases.postcond = append(r.phases.postcond, pc)
		}
		if pa, ok := w.(PoolAssigner); ok {
			r.poolID = pa.AssignPool(&BindCtx{Plant: p, Reaction: r})
		}
	}

	bindCtx := &BindCtx{Plant: p, Reaction: r}
	for _, w := range b.words {
		binder, ok := w.(Binder)
		if !ok {
			continue
		}
		unbind, err := binder.Bind(bindCtx)
		if err != nil {
			// Bind-time violation: unwind whatever already bound and fail
			// the installing call (spec §7).
			for i := len(r.unbinds) - 1; i >= 0; i-- {
				r.unbinds[i]()
			}
			return nil, fmt.Errorf("plant: bind %q: %w", label, err)
		}
		if unbind != nil {
			r.unbinds = append(r.unbinds, unbind)
		}
	}

	p.reactionsMu.Lock()
	p.reactions[r.id] = r
	p.reactionsMu.Unlock()

	return &ReactionHandle{reaction: r}, nil
}

// DispatchDirect runs the task constructor for r with extra context data,
// bypassing the type registry. This is how services that own their own
// subscriber tables outside the generic type->reaction index (chrono, IO,
// network, watchdogs) deliver to a specific reaction — see spec §4.7/§4.8.
func (p *Plant) DispatchDirect(r *Reaction, extra any) {
	t := construct(r, p.cache, nil, extra)
	if t == nil {
		return
	}
	p.poolFor(t.PoolID).Submit(t)
}

// ---- emission pipeline ----------------------------------------------------

// Emit is sugar for EmitScope(ScopeLocal, value) from outside any reaction
// (e.g. from the demo binary's main goroutine, or from a service that has
// no cause to report).
func Emit[T any](p *Plant, value T) {
	p.emit(ScopeLocal, value, nil, 0)
}

// EmitScope emits value under scope from outside any reaction.
func EmitScope[T any](p *Plant, scope Scope, value T) {
	p.emit(scope, value, nil, 0)
}

func (p *Plant) emit(scope Scope, value any, cause *Cause, producerTaskID uint64) {
	key := reflect.TypeOf(value)
	switch scope {
	case ScopeLocal, ScopeDirect:
		p.cache.Store(key, value)
		if producerTaskID != 0 {
			p.cache.Link(key, producerTaskID, value)
		}
		for _, r := range p.registry.Interested(key) {
			t := construct(r, p.cache, cause, nil)
			if t == nil {
				continue
			}
			if scope == ScopeDirect {
				p.runTask(t)
			} else {
				p.poolFor(t.PoolID).Submit(t)
			}
		}
	case ScopeInitialize:
		p.initMu.Lock()
		p.initQueue = append(p.initQueue, func() { p.emit(ScopeLocal, value, cause, producerTaskID) })
		p.initMu.Unlock()
	case ScopeWatchdog:
		p.resetWatchdog(key)
	case ScopeUDP, ScopeNetwork:
		p.networkSinkMu.RLock()
		sink := p.networkSink
		p.networkSinkMu.RUnlock()
		if sink != nil {
			sink(scope, value)
		} else {
			p.logger.Debug("emit: no network service installed, dropping", "scope", scope, "type", key)
		}
	}
}

func (p *Plant) emitLogMessage(lm LogMessage) {
	p.emit(ScopeDirect, lm, nil, 0)
}

func (p *Plant) emitStatistics(t *Task) {
	stats := ReactionStatistics{
		ReactionID: t.Reaction.id,
		TaskID:     t.ID,
		Label:      t.Reaction.label,
		Stats:      t.Stats,
	}
	if p.onStats != nil {
		p.onStats(stats)
	}
	p.emit(ScopeLocal, stats, nil, 0)
}

// runTask executes steps 3-7 of the dispatch loop in spec §4.5: reschedule,
// mark active, run the callback (recovering panics), postcondition, mark
// inactive, emit statistics.
func (p *Plant) runTask(t *Task) {
	for _, resch := range t.Reaction.phases.reschedulers {
		t = resch.Reschedule(t)
		if t == nil {
			return
		}
	}

	t.Reaction.activeTasks.Add(1)
	t.Stats.StartTime = time.Now()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Stats.Exception = fmt.Errorf("panic: %v", rec)
				p.logger.Error("REACTION_PANIC",
					slog.String("reaction", t.Reaction.label),
					slog.Any("recovered", rec),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		ctx := &Context{plant: p, reactionID: t.Reaction.id, taskID: t.ID, cause: t.Cause, logger: p.logger}
		if err := t.Reaction.callback(ctx, t.Args); err != nil {
			t.Stats.Exception = err
		}
	}()

	t.Stats.FinishTime = time.Now()
	for _, pc := range t.Reaction.phases.postcond {
		pc.Postcondition(t)
	}
	t.Reaction.activeTasks.Add(-1)
	p.emitStatistics(t)
}

// Resubmit is called by words (e.g. Sync) whose postcondition produces the
// next task to run, routing it back through the correct pool.
func (p *Plant) Resubmit(t *Task) {
	p.poolFor(t.PoolID).Submit(t)
}

// ---- always reactions ------------------------------------------------------

// RegisterAlways records r as an Always reaction: once Start runs, a
// dedicated goroutine repeatedly builds and runs its task itself, one at a
// time, while the plant is running.
func (p *Plant) RegisterAlways(r *Reaction) {
	p.alwaysMu.Lock()
	defer p.alwaysMu.Unlock()
	p.always = append(p.always, r)
}

func (p *Plant) runAlways(r *Reaction) {
	defer p.wg.Done()
	for p.running.Load() {
		t := construct(r, p.cache, nil, nil)
		if t == nil {
			time.Sleep(time.Millisecond)
			continue
		}
		p.runTask(t)
	}
}

// ---- watchdogs --------------------------------------------------------------

type watchdogKey struct {
	reactionID uint64
	typeKey    TypeKey
}

type watchdogEntry struct {
	timer   *time.Timer
	timeout time.Duration
}

// RegisterWatchdog arms a deadline for (r, key): if it elapses without an
// EmitScope(ScopeWatchdog, value-of-type-key) reset, onExpire runs and the
// deadline is re-armed (the Watchdog word's onExpire hands WatchdogExpired[T]
// straight to r via DispatchDirect). See SPEC_FULL.md "Supplemented
// features" §1.
func (p *Plant) RegisterWatchdog(r *Reaction, key TypeKey, timeout time.Duration, onExpire func()) Unbinder {
	wk := watchdogKey{reactionID: r.id, typeKey: key}
	entry := &watchdogEntry{timeout: timeout}
	entry.timer = time.AfterFunc(timeout, func() {
		onExpire()
		p.watchdogMu.Lock()
		if e, ok := p.watchdogs[wk]; ok {
			e.timer.Reset(e.timeout)
		}
		p.watchdogMu.Unlock()
	})
	p.watchdogMu.Lock()
	p.watchdogs[wk] = entry
	p.watchdogMu.Unlock()
	return func() {
		p.watchdogMu.Lock()
		delete(p.watchdogs, wk)
		p.watchdogMu.Unlock()
		entry.timer.Stop()
	}
}

// resetWatchdog pushes out every armed watchdog deadline keyed on a type
// matching the just-emitted value, per reaction's own timeout.
func (p *Plant) resetWatchdog(key TypeKey) {
	p.watchdogMu.Lock()
	defer p.watchdogMu.Unlock()
	for wk, e := range p.watchdogs {
		if wk.typeKey == key {
			e.timer.Reset(e.timeout)
		}
	}
}

// ---- lifecycle --------------------------------------------------------------

// Start spawns workers for every non-main pool, runs every Initialize-scope
// emission queued during Install, emits Startup, starts every Always
// reaction, then blocks the calling goroutine as the single main-pool
// worker until Shutdown is called and the main pool's queue drains.
func (p *Plant) Start(ctx context.Context) error {
	p.running.Store(true)

	mainPool := NewPool(MainPoolID, "main", 1)
	p.poolsMu.Lock()
	p.pools[MainPoolID] = mainPool
	p.poolsMu.Unlock()

	for _, pool := range p.Pools() {
		if pool.ID() == MainPoolID {
			continue
		}
		for i := 0; i < pool.concurrency; i++ {
			p.wg.Add(1)
			go func(pool *Pool) {
				defer p.wg.Done()
				pool.run(p.runTask)
			}(pool)
		}
	}

	p.initMu.Lock()
	initQueue := p.initQueue
	p.initQueue = nil
	p.initMu.Unlock()
	for _, fn := range initQueue {
		fn()
	}

	p.emit(ScopeLocal, StartupMessage{At: time.Now()}, nil, 0)

	p.alwaysMu.Lock()
	always := append([]*Reaction(nil), p.always...)
	p.alwaysMu.Unlock()
	for _, r := range always {
		p.wg.Add(1)
		go p.runAlways(r)
	}

	mainPool.run(p.runTask)

	p.wg.Wait()
	return ctx.Err()
}

// Shutdown emits ShutdownMessage and marks every pool draining. It is
// idempotent and safe to call from any goroutine, including from within a
// reaction. Start returns once every pool has drained.
func (p *Plant) Shutdown() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.emit(ScopeLocal, ShutdownMessage{At: time.Now()}, nil, 0)
	p.chrono.Close()
	for _, pool := range p.Pools() {
		pool.Drain()
	}
	for _, g := range p.sync.all() {
		g.drain()
	}
}
