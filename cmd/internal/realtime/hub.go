package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"ticketd/cmd/internal/ticket"
)

// Hub fans committed ticket events out to connected feed clients.
// It implements ticket.Publisher; Publish never blocks the store.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client

	dropped atomic.Uint64
}

var _ ticket.Publisher = (*Hub)(nil)

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		log:     log,
		clients: make(map[string]*Client),
	}
}

// Subscribe registers c for future events.
func (h *Hub) Subscribe(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.SessionID] = c
}

// Unsubscribe removes the client with sessionID. Unknown ids are ignored.
func (h *Hub) Unsubscribe(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sessionID)
}

// Publish delivers ev to every subscriber whose queue has room.
// Slow subscribers miss the event; the miss is counted in Dropped.
func (h *Hub) Publish(ev ticket.Event) {
	env := envelopeFromEvent(ev)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		if c.offer(env) {
			continue
		}
		h.dropped.Add(1)
		h.log.Warn("ws.publish.drop", "session_id", id, "user_id", c.UserID, "type", env.Type)
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
