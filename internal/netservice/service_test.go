package netservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/webitel/reactor-plant/internal/dsl"
	"github.com/webitel/reactor-plant/internal/netservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

type stubSender struct {
	mu   sync.Mutex
	fail bool
	sent [][]byte
}

func (s *stubSender) SendTo(addr string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("boom")
	}
	s.sent = append(s.sent, payload)
	return nil
}

func TestServiceSendRecordsRTT(t *testing.T) {
	p := plant.New(plant.Config{DefaultPoolConcurrency: 1})
	sender := &stubSender{}
	svc := netservice.New(p, sender, nil)

	if err := svc.Send(context.Background(), "peer-a", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	if svc.Timeout("peer-a") <= 0 {
		t.Fatal("expected a positive timeout after one measurement")
	}
}

func TestReceiveDropsDuplicatePackets(t *testing.T) {
	p := plant.New(plant.Config{DefaultPoolConcurrency: 1})
	seen := make(chan netservice.Packet, 4)
	if _, err := p.On(dsl.Trigger[netservice.Packet]()).Then("collector", func(ctx *plant.Context, args []any) error {
		seen <- args[0].(netservice.Packet)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	svc := netservice.New(p, &stubSender{}, nil)

	var unregisteredType plant.TypeKey
	go func() {
		svc.Receive("peer-a", 1, unregisteredType, []byte("one"))
		svc.Receive("peer-a", 1, unregisteredType, []byte("one-again")) // duplicate id, dropped
		svc.Receive("peer-a", 2, unregisteredType, []byte("two"))
		time.Sleep(20 * time.Millisecond)
		p.Shutdown()
	}()

	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(seen)
	var got []netservice.Packet
	for pkt := range seen {
		got = append(got, pkt)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 delivered packets (duplicate dropped), got %d", len(got))
	}
}
