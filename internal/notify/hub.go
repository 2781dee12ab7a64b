// Package notify fans out change notifications to connected subscribers.
// Fire-and-forget: no delivery guarantee, no replay. Clients re-fetch the
// file list on receipt, so a dropped event only delays them until the next
// one.
package notify

import "sync"

// EventFilesUpdated is the single event name the service broadcasts.
// The payload is a human-readable message, not a structured diff.
const EventFilesUpdated = "files_updated"

type Event struct {
	Name    string `json:"event"`
	Message string `json:"message"`
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber and returns its event channel plus a
// cancel function that must be called when the connection goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// Broadcast delivers the event to every current subscriber without
// blocking. A subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(name, message string) {
	ev := Event{Name: name, Message: message}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
