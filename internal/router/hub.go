package router

import (
	"sync"

	"timerpanel/internal/core/engine"
	"timerpanel/internal/logging"
)

// Hub is the registry of attached surfaces. Publishing delivers to every
// current subscriber; having none is not an error.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan engine.Event
	nextID      int
	logger      logging.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		subscribers: make(map[int]chan engine.Event),
		logger:      logger,
	}
}

// Subscribe attaches a surface. The returned func detaches it and closes
// the channel; calling it again is a no-op.
func (hub *Hub) Subscribe(buffer int) (<-chan engine.Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan engine.Event, buffer)

	hub.mu.Lock()
	id := hub.nextID
	hub.nextID++
	hub.subscribers[id] = ch
	hub.mu.Unlock()

	return ch, func() {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		if _, ok := hub.subscribers[id]; !ok {
			return
		}
		delete(hub.subscribers, id)
		close(ch)
	}
}

// Publish hands event to every subscriber without blocking. A subscriber
// whose buffer is full misses the event.
func (hub *Hub) Publish(event engine.Event) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for id, ch := range hub.subscribers {
		select {
		case ch <- event:
		default:
			hub.logger.Debugf("hub: subscriber %d is slow, dropped %s", id, event.Type)
		}
	}
}

// Attached reports how many surfaces are subscribed.
func (hub *Hub) Attached() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscribers)
}

// Close detaches every subscriber.
func (hub *Hub) Close() {
	hub.mu.Lock()
	subscribers := hub.subscribers
	hub.subscribers = make(map[int]chan engine.Event)
	hub.mu.Unlock()

	for _, ch := range subscribers {
		close(ch)
	}
}
