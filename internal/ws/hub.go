package ws

import (
	"encoding/json"
	"sync"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/logger"
)

// Hub fans admin broadcasts out to every connected client
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug("ws client registered", "client", c.ID, "clients", n)
}

// Unregister removes c and closes its send queue
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.closeSend()
		logger.Debug("ws client unregistered", "client", c.ID)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues msg for every client. Clients whose queue is full are dropped.
func (h *Hub) Send(msg []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		if !c.trySend(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("ws client too slow, dropping", "client", c.ID)
		h.Unregister(c)
	}
}

// PublishBroadcast sends a stored admin broadcast to all clients
func (h *Hub) PublishBroadcast(b domain.Broadcast) {
	msg, err := json.Marshal(Message{Type: MsgBroadcast, Broadcast: &b})
	if err != nil {
		logger.Error("encode broadcast", "error", err)
		return
	}
	h.Send(msg)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.closeSend()
	}
}
