// Package netservice is the collaborator behind the UDP/TCP/Network words
// (package dsl): per-peer send/receive plumbing, packet deduplication and
// RTT-driven timeouts. Wire framing and the platform socket implementation
// are out of scope (SPEC_FULL.md §1); Sender is the pluggable seam a real
// UDP/TCP transport plugs into.
package netservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/webitel/reactor-plant/internal/plant"
)

// Sender performs the actual wire write for one peer. A real
// implementation wraps a net.Conn; tests use a stub.
type Sender interface {
	SendTo(addr string, payload []byte) error
}

// Packet is emitted Local scope by Receive for a payload whose type key has
// no Network[T] registration: the raw bytes received from a peer, already
// passed through dedup.
type Packet struct {
	PeerAddr string
	Payload  []byte
}

// TransportMode selects which of the spec's four listening modes a UDP/TCP
// word configures. The platform socket bind itself is out of scope (spec
// §1); Configure only records the choice for introspection and for a real
// transport implementation to read back.
type TransportMode int

const (
	ModeUDPUnicast TransportMode = iota
	ModeUDPBroadcast
	ModeUDPMulticast
	ModeTCP
)

// TransportConfig is what the UDP/UDPBroadcast/UDPMulticast/TCP words
// (package dsl) install via Configure.
type TransportConfig struct {
	Mode          TransportMode
	Port          int
	MulticastAddr string
}

// peerState tracks per-peer circuit-breaker, RTT estimate and dedup window.
// One exists per distinct peer address a reactor has sent to or received
// from.
type peerState struct {
	breaker *gobreaker.CircuitBreaker
	rtt     *RTTEstimator
	dedup   Deduplicator
	mu      sync.Mutex
}

// Service fans Local-scope Packet emissions out to a plant, applying
// dedup, and exposes a breaker-guarded Send per peer. Grounded on the
// teacher's adapter/pubsub package for the "one small provider type wired
// by fx, building whatever per-destination object it's asked for" shape,
// generalized from AMQP exchanges to network peers.
type Service struct {
	plant  *plant.Plant
	sender Sender
	logger *slog.Logger

	mu    sync.Mutex
	peers map[string]*peerState

	typesMu sync.RWMutex
	types   map[plant.TypeKey]typeEntry

	transportMu sync.RWMutex
	transport   TransportConfig
}

// typeEntry is what the Network[T] word (package dsl) installs at bind
// time: how to decode a raw wire payload into T, and how to re-emit it.
// Standing in for the spec's "128-bit type hash" registration (spec §4.8);
// reflect.Type already is the dense, comparable identity Go gives types for
// free, so it is reused here instead of computing a real wire hash.
type typeEntry struct {
	decode func(payload []byte) (any, error)
	emit   func(addr string, v any)
}

// New constructs a Service that republishes received packets onto p and
// sends outbound ones through sender. It installs itself as p's network
// sink, so emit<Scope::Network>/emit<Scope::UDP> calls anywhere in the
// plant flow through Send/broadcast here instead of being dropped.
func New(p *plant.Plant, sender Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		plant: p, sender: sender, logger: logger,
		peers: make(map[string]*peerState),
		types: make(map[plant.TypeKey]typeEntry),
	}
	p.SetNetworkSink(s.handleEmit)
	return s
}

// RegisterType installs the decode/emit pair for T, used by Receive once a
// packet's type key matches. Called by the Network[T] word's Bind.
func (s *Service) RegisterType(key plant.TypeKey, decode func([]byte) (any, error), emit func(addr string, v any)) {
	s.typesMu.Lock()
	s.types[key] = typeEntry{decode: decode, emit: emit}
	s.typesMu.Unlock()
}

// UnregisterType removes a prior RegisterType. Called by the Network[T]
// word's unbinder.
func (s *Service) UnregisterType(key plant.TypeKey) {
	s.typesMu.Lock()
	delete(s.types, key)
	s.typesMu.Unlock()
}

// Configure records which listening mode the plant's UDP/TCP words bound
// to. Called by the UDP/UDPBroadcast/UDPMulticast/TCP words' Bind.
func (s *Service) Configure(cfg TransportConfig) {
	s.transportMu.Lock()
	s.transport = cfg
	s.transportMu.Unlock()
}

// Transport returns the most recently configured transport, for
// introspection.
func (s *Service) Transport() TransportConfig {
	s.transportMu.RLock()
	defer s.transportMu.RUnlock()
	return s.transport
}

// handleEmit is the plant's network sink: an emit<Scope::Network> or
// emit<Scope::UDP> anywhere in the plant lands here. Emissions carry no
// target, so each one is a broadcast: every known peer is sent to
// concurrently.
func (s *Service) handleEmit(scope plant.Scope, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("NETSERVICE_ENCODE_FAILED", "err", err)
		return
	}

	s.mu.Lock()
	addrs := make([]string, 0, len(s.peers))
	for addr := range s.peers {
		addrs = append(addrs, addr)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(context.Background())
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error { return s.Send(ctx, addr, payload) })
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("NETSERVICE_BROADCAST_PARTIAL_FAILURE", "err", err)
	}
}

func (s *Service) peer(addr string) *peerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.peers[addr]
	if ok {
		return ps
	}
	ps = &peerState{rtt: NewRTTEstimator()}
	ps.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "netservice-peer-" + addr,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("NETSERVICE_BREAKER_STATE", "peer", name, "from", from.String(), "to", to.String())
		},
	})
	s.peers[addr] = ps
	return ps
}

// Send writes payload to addr through the peer's circuit breaker, timing
// the call into its RTT estimator on success.
func (s *Service) Send(ctx context.Context, addr string, payload []byte) error {
	ps := s.peer(addr)
	start := time.Now()
	_, err := ps.breaker.Execute(func() (any, error) {
		return nil, s.sender.SendTo(addr, payload)
	})
	if err == nil {
		ps.mu.Lock()
		ps.rtt.Measure(time.Since(start))
		ps.mu.Unlock()
	} else if errors.Is(err, gobreaker.ErrOpenState) {
		s.logger.Debug("NETSERVICE_BREAKER_OPEN", "peer", addr)
	}
	return err
}

// Timeout returns the current send timeout recommendation for addr.
func (s *Service) Timeout(addr string) time.Duration {
	ps := s.peer(addr)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.rtt.Timeout()
}

// Receive is called by the transport implementation for every inbound
// datagram; duplicates (per the sliding packet-id window) are dropped
// silently. If typeKey matches a Network[T] word's registration the
// payload is decoded and handed to that word's emit callback; otherwise it
// is emitted Local scope as a raw Packet.
func (s *Service) Receive(addr string, packetID uint16, typeKey plant.TypeKey, payload []byte) {
	ps := s.peer(addr)
	ps.mu.Lock()
	dup := ps.dedup.IsDuplicate(packetID)
	if !dup {
		ps.dedup.AddPacket(packetID)
	}
	ps.mu.Unlock()
	if dup {
		return
	}

	s.typesMu.RLock()
	entry, ok := s.types[typeKey]
	s.typesMu.RUnlock()
	if !ok {
		plant.Emit(s.plant, Packet{PeerAddr: addr, Payload: payload})
		return
	}

	v, err := entry.decode(payload)
	if err != nil {
		s.logger.Warn("NETSERVICE_DECODE_FAILED", "peer", addr, "err", err)
		return
	}
	entry.emit(addr, v)
}
