// Package broadcast is the in-process publish/subscribe fabric that wakes
// connected live clients when the fire alarm fires. Events are ephemeral:
// no replay, no backlog, no durability.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FireEvent is the only event this server publishes.
type FireEvent struct {
	Triggered  bool      `json:"triggered"`
	OccurredAt time.Time `json:"alertTime"`
}

// Subscription is one live listener's handle. Events arrive on C until
// Unsubscribe, after which C is closed.
type Subscription struct {
	ID uuid.UUID
	C  <-chan FireEvent
}

// Hub owns the subscriber set. Safe for concurrent Subscribe, Unsubscribe
// and Publish.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]chan FireEvent
	bufSize int
	logger  *zap.Logger
}

func NewHub(subscriberBuffer int, logger *zap.Logger) *Hub {
	if subscriberBuffer <= 0 {
		subscriberBuffer = 8
	}
	return &Hub{
		subs:    make(map[uuid.UUID]chan FireEvent),
		bufSize: subscriberBuffer,
		logger:  logger,
	}
}

// Subscribe registers a new listener. Only events published after this call
// are delivered to it.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan FireEvent, h.bufSize)
	id := uuid.New()

	h.mu.Lock()
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("broadcast subscriber added",
		zap.String("id", id.String()), zap.Int("subscribers", n))
	return &Subscription{ID: id, C: ch}
}

// Unsubscribe removes a listener and closes its channel. Idempotent.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	ch, ok := h.subs[sub.ID]
	if ok {
		delete(h.subs, sub.ID)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(ch)
	h.logger.Debug("broadcast subscriber removed",
		zap.String("id", sub.ID.String()), zap.Int("subscribers", n))
}

// Publish delivers the event to every current subscriber, best-effort: a
// subscriber whose buffer is full drops the event without delaying the
// rest.
func (h *Hub) Publish(event FireEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Warn("broadcast subscriber lagging, event dropped",
				zap.String("id", id.String()))
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
