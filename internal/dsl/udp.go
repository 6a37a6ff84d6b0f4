package dsl

import (
	"github.com/webitel/reactor-plant/internal/netservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

// transportWord records which listening mode a plant's network service
// should run in. It contributes no argument to the reaction (Network[T]
// carries the data); binding it alongside a Network[T] word is how a
// reactor declares "I want T over UDP broadcast" per spec §4.3's core word
// list (UDP/UDP::Broadcast/UDP::Multicast/TCP, Network<T>).
type transportWord struct {
	svc *netservice.Service
	cfg netservice.TransportConfig
}

func (w *transportWord) Bind(ctx *plant.BindCtx) (plant.Unbinder, error) {
	w.svc.Configure(w.cfg)
	return func() {}, nil
}

// UDP configures unicast UDP on port (0 lets the transport pick an
// ephemeral port).
func UDP(svc *netservice.Service, port int) plant.Word {
	return &transportWord{svc: svc, cfg: netservice.TransportConfig{Mode: netservice.ModeUDPUnicast, Port: port}}
}

// UDPBroadcast configures broadcast UDP on port.
func UDPBroadcast(svc *netservice.Service, port int) plant.Word {
	return &transportWord{svc: svc, cfg: netservice.TransportConfig{Mode: netservice.ModeUDPBroadcast, Port: port}}
}

// UDPMulticast configures multicast UDP on addr:port.
func UDPMulticast(svc *netservice.Service, addr string, port int) plant.Word {
	return &transportWord{svc: svc, cfg: netservice.TransportConfig{Mode: netservice.ModeUDPMulticast, Port: port, MulticastAddr: addr}}
}

// TCP configures a TCP listener on port.
func TCP(svc *netservice.Service, port int) plant.Word {
	return &transportWord{svc: svc, cfg: netservice.TransportConfig{Mode: netservice.ModeTCP, Port: port}}
}
