package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per device token
	maxConnsPerDevice = 4
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps device token -> websocket connections and fans incoming push
// payloads out to them. It is the delivery end of the Redis push channel.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*websocket.Conn]struct{}
	totalConns int
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds a connection for a device token.
func (h *Hub) Register(token string, conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return errors.New("server connection limit reached")
	}

	m, ok := h.conns[token]
	if !ok {
		m = make(map[*websocket.Conn]struct{})
		h.conns[token] = m
	}
	if len(m) >= maxConnsPerDevice {
		return errors.New("device connection limit reached")
	}

	m[conn] = struct{}{}
	h.totalConns++
	return nil
}

// Unregister removes a connection.
func (h *Hub) Unregister(token string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.conns[token]; ok {
		if _, exists := m[conn]; exists {
			delete(m, conn)
			h.totalConns--
		}
		if len(m) == 0 {
			delete(h.conns, token)
		}
	}
}

// ConnectionCount returns the number of connections registered for a token.
func (h *Hub) ConnectionCount(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[token])
}

// Broadcast writes the payload to every connection registered for the token.
// Write errors are logged and otherwise ignored; delivery is best-effort.
func (h *Hub) Broadcast(token string, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[token] {
		if err := c.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}
}

// StartWiring connects the hub to the notifier's Redis subscription so
// published pushes reach connected devices.
func (h *Hub) StartWiring(ctx context.Context, n *RedisNotifier) error {
	return n.StartPatternSubscriber(ctx, func(token, payload string) {
		h.Broadcast(token, payload)
	})
}

// Shutdown closes all connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for token, m := range h.conns {
		for c := range m {
			if c.Conn != nil {
				_ = c.Close()
			}
		}
		delete(h.conns, token)
	}
	h.totalConns = 0
	return nil
}
