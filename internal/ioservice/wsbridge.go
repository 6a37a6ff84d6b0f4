package ioservice

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/webitel/reactor-plant/internal/plant"
)

// WSMessage is emitted (Local scope) for every inbound frame read off a
// bridged websocket connection.
type WSMessage struct {
	ConnID uuid.UUID
	Data   []byte
}

// WSConnected and WSDisconnected bracket a bridged connection's lifetime.
type WSConnected struct{ ConnID uuid.UUID }
type WSDisconnected struct {
	ConnID uuid.UUID
	Err    error
}

// WSBridge upgrades inbound HTTP connections to websockets and republishes
// their traffic as plant emissions, the generalization of the teacher's
// ws.WSHandler pump loop from "one user's delivery stream" to "any
// connection a reactor wants to see as ordinary messages".
type WSBridge struct {
	plant    *plant.Plant
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[uuid.UUID]*websocket.Conn
}

// NewWSBridge constructs a bridge publishing onto p.
func NewWSBridge(p *plant.Plant, logger *slog.Logger) *WSBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSBridge{
		plant:  p,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[uuid.UUID]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and pumps inbound frames into the plant
// until reading from the connection fails (for example, when it closes).
func (b *WSBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.New()
	b.mu.Lock()
	b.conns[id] = conn
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.conns, id)
		b.mu.Unlock()
	}()

	plant.Emit(b.plant, WSConnected{ConnID: id})
	b.logger.Info("ws connected", "conn_id", id)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			plant.Emit(b.plant, WSDisconnected{ConnID: id, Err: err})
			return
		}
		plant.Emit(b.plant, WSMessage{ConnID: id, Data: data})
	}
}

// Send writes data as a text frame to conn, if it is still open.
func (b *WSBridge) Send(conn uuid.UUID, data []byte) error {
	b.mu.RLock()
	c, ok := b.conns[conn]
	b.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
