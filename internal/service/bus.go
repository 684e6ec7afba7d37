package service

import (
	"sync"

	"github.com/joeblew999/plat-overlay/internal/metrics"
)

// Event resources.
const (
	ResourceSession   = "session"
	ResourceLayers    = "layers"
	ResourceView      = "view"
	ResourceParams    = "params"
	ResourceToggles   = "toggles"
	ResourceSelectors = "selectors"
	ResourceBasemap   = "basemap"
)

// Event is one change to a session.
type Event struct {
	Session  string
	Resource string
	Action   string // "published", "changed", "updated", "created", "deleted"
	ID       string // publication seq, param, surface or basemap id
}

// EventBus fans session events out to stream subscribers. Publish never
// blocks: a subscriber with a full buffer misses the event.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]string
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]string)}
}

func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, session := range b.subs {
		if session != "" && session != e.Session {
			continue
		}
		select {
		case ch <- e:
		default:
			metrics.IncDroppedEvent(e.Resource)
		}
	}
}

// Subscribe returns a buffered channel receiving the events of session, or
// of every session when session is empty.
func (b *EventBus) Subscribe(session string) chan Event {
	ch := make(chan Event, 32)
	b.mu.Lock()
	b.subs[ch] = session
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
