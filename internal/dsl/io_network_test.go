package dsl_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/webitel/reactor-plant/internal/dsl"
	"github.com/webitel/reactor-plant/internal/ioservice"
	"github.com/webitel/reactor-plant/internal/netservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

type stubSender struct{}

func (stubSender) SendTo(addr string, payload []byte) error { return nil }

func TestIOWordDeliversReadableEvent(t *testing.T) {
	p := newPlant(t)
	svc, err := ioservice.New(p.Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	done := make(chan dsl.IOEvent, 1)
	if _, err := p.On(dsl.IO(svc, r, ioservice.Readable)).Then("reader", func(ctx *plant.Context, args []any) error {
		select {
		case done <- args[0].(dsl.IOEvent):
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	go func() {
		w.Write([]byte("hi"))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-done:
		if ev.Mask&ioservice.Readable == 0 {
			t.Fatalf("expected Readable mask, got %v", ev.Mask)
		}
	default:
		t.Fatal("reader reaction never ran")
	}
}

type netPayload struct{ Value string }

func TestNetworkWordDecodesRegisteredType(t *testing.T) {
	p := newPlant(t)
	svc := netservice.New(p, stubSender{}, nil)

	done := make(chan dsl.NetworkMessage[netPayload], 1)
	if _, err := p.On(dsl.Network[netPayload](svc)).Then("netrecv", func(ctx *plant.Context, args []any) error {
		select {
		case done <- args[0].(dsl.NetworkMessage[netPayload]):
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	go func() {
		svc.Receive("peer-a", 1, plant.KeyOf[netPayload](), []byte(`{"Value":"hello"}`))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-done:
		if msg.Source != "peer-a" || msg.Payload.Value != "hello" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	default:
		t.Fatal("netrecv reaction never ran")
	}
}

func TestUDPWordConfiguresTransport(t *testing.T) {
	p := newPlant(t)
	svc := netservice.New(p, stubSender{}, nil)

	if _, err := p.On(dsl.UDPBroadcast(svc, 9000)).Then("udp-listener", func(ctx *plant.Context, args []any) error {
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	cfg := svc.Transport()
	if cfg.Mode != netservice.ModeUDPBroadcast || cfg.Port != 9000 {
		t.Fatalf("expected broadcast:9000, got %+v", cfg)
	}
}
