package ioservice_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/webitel/reactor-plant/internal/dsl"
	"github.com/webitel/reactor-plant/internal/ioservice"
	"github.com/webitel/reactor-plant/internal/plant"
)

func TestWSBridgeEmitsMessageForInboundFrame(t *testing.T) {
	p := plant.New(plant.Config{DefaultPoolConcurrency: 1})
	bridge := ioservice.NewWSBridge(p, nil)

	server := httptest.NewServer(bridge)
	defer server.Close()

	done := make(chan string, 1)
	if _, err := p.On(dsl.Trigger[ioservice.WSMessage]()).Then("collect", func(ctx *plant.Context, args []any) error {
		msg := args[0].(ioservice.WSMessage)
		select {
		case done <- string(msg.Data):
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	go func() {
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
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
	case got := <-done:
		if got != "hello" {
			t.Fatalf("expected 'hello', got %q", got)
		}
	default:
		t.Fatal("collector reaction never ran")
	}
}
