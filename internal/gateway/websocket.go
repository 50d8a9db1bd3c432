package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nidhogg/deskpet/internal/surface"
	"go.uber.org/zap"
)

const (
	writeWait = 5 * time.Second
	// viewerBuffer bounds how far a viewer may fall behind before it is
	// disconnected.
	viewerBuffer = 256
)

// Greeter returns the events a newly connected viewer needs to draw the
// current scene.
type Greeter func(ctx context.Context) []surface.Event

// viewer is one connected browser. Only its writer goroutine touches conn
// for writing.
type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams surface events to browser viewers over websockets.
type Hub struct {
	mu       sync.Mutex
	clients  map[*viewer]struct{}
	upgrader websocket.Upgrader
	greet    Greeter
	logger   *zap.Logger
}

// NewHub creates a websocket hub. greet may be nil.
func NewHub(greet Greeter, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*viewer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		greet:  greet,
		logger: logger,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Publish queues ev for every connected viewer. It never waits on the
// network; a viewer whose queue is full is disconnected.
func (h *Hub) Publish(_ context.Context, ev surface.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		select {
		case v.send <- payload:
		default:
			h.logger.Warn("websocket viewer too slow, disconnecting")
			h.drop(v)
		}
	}
	return nil
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		h.drop(v)
	}
	return nil
}

// ServeHTTP upgrades the request and keeps the viewer registered until it
// disconnects. Viewers are read-only; anything they send is discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	v := &viewer{conn: conn, send: make(chan []byte, viewerBuffer)}

	// Register before taking the scene so nothing emitted in between is
	// lost. Live events queue up until the scene has been written.
	h.mu.Lock()
	h.clients[v] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket viewer connected", zap.Int("clients", n))
	defer h.remove(v)

	var scene []surface.Event
	if h.greet != nil {
		scene = h.greet(r.Context())
	}
	for _, ev := range scene {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := write(conn, payload); err != nil {
			return
		}
	}
	go h.writeLoop(v)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop drains the viewer's queue until it is closed.
func (h *Hub) writeLoop(v *viewer) {
	for payload := range v.send {
		if err := write(v.conn, payload); err != nil {
			h.logger.Debug("dropping websocket viewer", zap.Error(err))
			h.remove(v)
			return
		}
	}
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(v)
}

// drop must be called with mu held. It is a no-op for a viewer already gone.
func (h *Hub) drop(v *viewer) {
	if _, ok := h.clients[v]; !ok {
		return
	}
	delete(h.clients, v)
	close(v.send)
	v.conn.Close()
}

func write(conn *websocket.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
