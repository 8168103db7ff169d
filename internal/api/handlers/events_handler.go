package handlers

import (
	"context"

	"finscan/internal/clientcache"
	"finscan/internal/dto"
	"finscan/internal/notifier"
	"finscan/internal/repository"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const sessionSeedLimit = 50

// EventsHandler serves the realtime channel. Each websocket connection gets
// a session-scoped reconciliation cache seeded from an authoritative fetch;
// processing events are merged into it and forwarded as an optimization on
// top of that ground truth.
type EventsHandler struct {
	hub    *notifier.Hub
	docs   repository.DocumentRepository
	logger *zap.Logger
}

func NewEventsHandler(hub *notifier.Hub, docs repository.DocumentRepository, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		docs:   docs,
		logger: logger,
	}
}

type serverFrame struct {
	Type      string                  `json:"type"`
	Documents []*dto.DocumentResponse `json:"documents,omitempty"`
	Document  *dto.DocumentResponse   `json:"document,omitempty"`
	Scope     string                  `json:"scope,omitempty"`
}

type clientFrame struct {
	Type          string `json:"type"`
	DocumentID    int64  `json:"document_id"`
	TransactionID int64  `json:"transaction_id"`
}

// Serve runs one live session. The connection is closed when the client
// goes away or the outbound path breaks.
func (h *EventsHandler) Serve(c *websocket.Conn) {
	ownerID, ok := c.Locals("ownerID").(int64)
	if !ok || ownerID == 0 {
		_ = c.Close()
		return
	}

	cache := clientcache.NewSessionCache()
	done := make(chan struct{})
	outbound := make(chan serverFrame, 32)

	enqueue := func(frame serverFrame) {
		select {
		case outbound <- frame:
		case <-done:
		}
	}

	cache.OnInvalidate(func(scope string) {
		enqueue(serverFrame{Type: "invalidate", Scope: scope})
	})

	// Seed from the repository; events received from here on are merged on
	// top, never trusted on their own.
	docs, err := h.docs.ListByOwner(context.Background(), ownerID, sessionSeedLimit, 0)
	if err != nil {
		h.logger.Error("failed to seed session cache",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)
		_ = c.Close()
		return
	}
	snapshot := make([]*dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		cache.Put(doc)
		snapshot[i] = dto.NewDocumentResponse(doc)
	}

	sub := h.hub.Subscribe(ownerID)
	defer sub.Close()

	// Reader: dismiss and confirmed frames mutate the session cache only.
	go func() {
		defer close(done)
		for {
			var frame clientFrame
			if err := c.ReadJSON(&frame); err != nil {
				return
			}
			switch frame.Type {
			case "dismiss":
				cache.Remove(frame.DocumentID)
			case "confirmed":
				cache.MarkMaterialized(frame.DocumentID, frame.TransactionID)
			}
		}
	}()

	if err := c.WriteJSON(serverFrame{Type: "snapshot", Documents: snapshot}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case frame := <-outbound:
			if err := c.WriteJSON(frame); err != nil {
				return
			}
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if cache.Dismissed(event.DocumentID) {
				continue
			}
			if _, known := cache.Get(event.DocumentID); !known {
				// Uploaded after the snapshot: seed the entry from the
				// repository before merging, events alone are not truth.
				fresh, err := h.docs.GetByID(context.Background(), event.DocumentID)
				if err != nil || fresh.OwnerID != ownerID {
					continue
				}
				cache.Put(fresh)
			}
			cache.ApplyEvent(event)
			doc, present := cache.Get(event.DocumentID)
			if !present {
				// Dismissed locally; the repository still holds the truth
				// for anyone who asks.
				continue
			}
			if err := c.WriteJSON(serverFrame{Type: "document", Document: dto.NewDocumentResponse(doc)}); err != nil {
				return
			}
		}
	}
}

// Upgrade gates the events route to websocket upgrade requests.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}
