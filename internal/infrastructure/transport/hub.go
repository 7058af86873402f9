package transport

import (
	"sync"

	"iacgenius/app/usecase"
)

// EventHub fans session events out to websocket subscribers. Slow consumers
// lose events rather than block a transition.
type EventHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan usecase.SessionEvent]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		subs: make(map[string]map[chan usecase.SessionEvent]struct{}),
	}
}

// Publish delivers ev to every subscriber of its session.
func (h *EventHub) Publish(ev usecase.SessionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a buffered channel of events for one session.
func (h *EventHub) Subscribe(sessionID string) chan usecase.SessionEvent {
	ch := make(chan usecase.SessionEvent, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan usecase.SessionEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes the channel.
func (h *EventHub) Unsubscribe(sessionID string, ch chan usecase.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sessionID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
}
