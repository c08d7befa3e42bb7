package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Per-subscriber send queue size. Large enough to absorb bursts of status
// and message events without blocking the fan-out.
const sendQueueSize = 64

// Envelope is the wire format pushed to websocket subscribers.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber is one connected dashboard client.
type Subscriber struct {
	ID   string
	send chan []byte

	closeOnce sync.Once
	closed    atomic.Bool
}

// Receive returns the channel of marshalled envelopes for this subscriber.
// The channel is closed when the subscriber is dropped.
func (s *Subscriber) Receive() <-chan []byte {
	return s.send
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.send)
	})
}

// trySend queues data without blocking. Returns false when the subscriber is
// closed or its queue is full.
func (s *Subscriber) trySend(data []byte) (sent bool) {
	defer func() {
		// A close can race the send below; a send on the closed channel is
		// treated the same as a full queue.
		if r := recover(); r != nil {
			sent = false
		}
	}()

	if s.closed.Load() {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Hub fans events out to all current subscribers. Delivery is best-effort and
// at-most-once: there is no replay buffer, and a subscriber whose queue is
// full is dropped rather than allowed to stall everyone else.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber

	// snapshot produces the current status payload sent to every new
	// subscriber, so clients never have to poll for initial state.
	snapshot func() interface{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
	}
}

// SetSnapshot installs the function producing the on-subscribe status
// payload. Must be called before the first Subscribe.
func (h *Hub) SetSnapshot(fn func() interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Subscribe registers a new subscriber and immediately queues the current
// status snapshot for it.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID:   uuid.NewString(),
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	h.subscribers[sub.ID] = sub
	snapshot := h.snapshot
	h.mu.Unlock()

	log.Printf("🔌 Client connected: %s (%d total)", sub.ID, h.Count())

	if snapshot != nil {
		if data, err := marshalEnvelope("status", snapshot()); err == nil {
			sub.trySend(data)
		}
	}

	return sub
}

// Unsubscribe removes a subscriber and closes its queue. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub.ID]
	delete(h.subscribers, sub.ID)
	h.mu.Unlock()

	sub.close()

	if ok {
		log.Printf("🔌 Client disconnected: %s (%d total)", sub.ID, h.Count())
	}
}

// Broadcast delivers an event to every current subscriber. Subscribers that
// cannot keep up are dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := marshalEnvelope(event, data)
	if err != nil {
		log.Printf("❌ Failed to marshal %q event: %v", event, err)
		return
	}

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.trySend(payload) {
			log.Printf("⚠️  Dropping slow client %s", sub.ID)
			h.Unsubscribe(sub)
		}
	}
}

// Count reports the current number of subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func marshalEnvelope(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	})
}
