// Package live fans analytics events out to connected admin websockets.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"readquest/internal/logger"
)

const writeWait = 5 * time.Second

// Hub keeps the set of connected clients and a buffered outbox
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan any
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan any, 64),
	}
}

// Run delivers queued messages until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.ch:
			h.deliver(msg)
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug("Dropping live client", "error", err)
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Broadcast queues msg without blocking; it is dropped when the outbox is full
func (h *Hub) Broadcast(msg any) {
	select {
	case h.ch <- msg:
	default:
		logger.Warn("Live outbox full, dropping message")
	}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades the request and keeps the client registered until it
// disconnects. Authorization happens before this is called.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.Add(conn)
	defer func() {
		h.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
