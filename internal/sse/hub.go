package sse

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/types"
)

const defaultClientBuffer = 8

// Hub fans notification payloads out to connected event-stream clients,
// keyed by user. A user may hold several concurrent streams (tabs, devices).
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	buffer  int
}

type client struct {
	events chan types.NotificationPayload
}

// NewHub builds a hub whose per-client channels buffer up to buffer events.
// Non-positive values fall back to the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		buffer:  buffer,
	}
}

// Subscribe registers a stream for the user and returns its event channel
// plus a teardown func. The teardown closes the channel; callers must stop
// reading after invoking it.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan types.NotificationPayload, func()) {
	c := &client{events: make(chan types.NotificationPayload, h.buffer)}

	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.clients[userID]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(h.clients, userID)
				}
			}
			h.mu.Unlock()
			close(c.events)
		})
	}
	return c.events, unsubscribe
}

// Publish delivers the payload to every stream the user currently holds.
// Slow consumers are skipped rather than blocking the dispatcher.
func (h *Hub) Publish(userID uuid.UUID, payload types.NotificationPayload) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.events <- payload:
		default:
		}
	}
}

// ClientCount reports the number of open streams for the user.
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
