package websocket

import (
	"log/slog"
	"sync"
)

// Message types pushed to petition pages.
const (
	TypeStatsUpdated     = "stats_updated"
	TypeSignatureCreated = "signature_created"
	TypeImageGenerated   = "image_generated"
)

// Message is a real-time notification broadcast to all connected
// petition pages (live signature counter, generated image gallery).
type Message struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewMessage creates a Message of the given type.
func NewMessage(typ string, payload map[string]any) Message {
	return Message{Type: typ, Payload: payload}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues a message for every connected client. Encoding
// happens in each client's write pump.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client buffer full — drop message to avoid blocking
			h.logger.Debug("dropped broadcast, client buffer full", "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
