package notifier

import (
	"sync"

	"finscan/internal/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Hub broadcasts processing events on per-owner channels. Delivery is
// best-effort: there is no persistence and no replay, and a subscriber whose
// buffer is full loses the event rather than blocking the publisher.
// Events for one document are published from that document's single dispatch
// goroutine, so subscribers observe them in publish order.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int64]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscription receives the events published for one owner. Close it when
// the client goes away.
type Subscription struct {
	hub     *Hub
	ownerID int64
	ch      chan models.ProcessingEvent
	once    sync.Once
}

// Events returns the subscription's delivery channel. It is closed when the
// subscription is closed.
func (s *Subscription) Events() <-chan models.ProcessingEvent {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if set, ok := s.hub.subs[s.ownerID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.ownerID)
			}
		}
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

// Subscribe registers a new subscriber for the owner's events. Multiple
// subscriptions for the same owner all receive each event.
func (h *Hub) Subscribe(ownerID int64) *Subscription {
	sub := &Subscription{
		hub:     h,
		ownerID: ownerID,
		ch:      make(chan models.ProcessingEvent, subscriberBuffer),
	}

	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[*Subscription]struct{})
	}
	h.subs[ownerID][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers the event to every current subscriber of its owner.
// It never blocks.
func (h *Hub) Publish(event models.ProcessingEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.OwnerID] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping processing event for slow subscriber",
				zap.Int64("owner_id", event.OwnerID),
				zap.Int64("document_id", event.DocumentID),
			)
		}
	}
}
