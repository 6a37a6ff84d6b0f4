package plant

// Base is embedded in every user reactor type. It supplies On, promoted
// through the embedding, once Install has bound it to a plant; this is the
// Go-native stand-in for the teacher's fx-module constructor-as-wiring-point
// idiom (cmd/fx.go), moved from DI-time wiring to bind-time wiring.
type Base struct {
	plant *Plant
}

// On begins a subscription against the plant this reactor was installed
// into. Calling it before Install has run panics with a nil pointer
// dereference, the same failure mode as using an unwired fx dependency.
func (b *Base) On(words ...Word) *Builder { return b.plant.On(words...) }

// Plant returns the plant this reactor was installed into.
func (b *Base) Plant() *Plant { return b.plant }

func (b *Base) setPlant(p *Plant) { b.plant = p }

type planted interface {
	setPlant(*Plant)
}

// Reactor is any type embedding Base that implements Bind, wiring its
// subscriptions the first time it is installed into a plant.
type Reactor interface {
	planted
	Bind() error
}

// Install binds r to p and runs its wiring. Equivalent to spec.md's
// "Install(Reactor) error" external interface.
func (p *Plant) Install(r Reactor) error {
	r.setPlant(p)
	return r.Bind()
}
