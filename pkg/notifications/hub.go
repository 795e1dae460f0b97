package notifications

import (
	"context"
	"sync"

	"github.com/cbodonnell/skirmish/pkg/log"
	"github.com/cbodonnell/skirmish/pkg/queue"
	"nhooyr.io/websocket"
)

const (
	// SubscriberOutboxSize bounds the number of pending payloads per
	// subscriber. Slow readers lose updates rather than stalling the hub.
	SubscriberOutboxSize = 64
)

// Hub fans session payloads out to websocket subscribers. Publishing never
// blocks on a subscriber's connection: each subscriber drains its own
// outbox queue on a dedicated writer goroutine.
type Hub struct {
	lock        sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
}

type subscriber struct {
	conn   *websocket.Conn
	outbox queue.Queue
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

func (h *Hub) Publish(sessionID string, payload []byte) {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for sub := range h.subscribers[sessionID] {
		if !sub.outbox.Enqueue(payload) {
			log.Warn("Dropping payload for slow subscriber on session %s", sessionID)
		}
	}
}

// Subscribe registers the connection for a session's payloads and writes
// them until the context is cancelled or the connection fails.
func (h *Hub) Subscribe(ctx context.Context, sessionID string, conn *websocket.Conn) error {
	sub := &subscriber{
		conn:   conn,
		outbox: queue.NewInMemoryQueue(SubscriberOutboxSize),
	}
	h.add(sessionID, sub)
	defer h.remove(sessionID, sub)

	go func() {
		<-ctx.Done()
		sub.outbox.Close()
	}()

	for {
		item, ok := sub.outbox.Dequeue()
		if !ok {
			return ctx.Err()
		}
		payload, ok := item.([]byte)
		if !ok {
			log.Error("Failed to cast outbox item to []byte")
			continue
		}
		if err := conn.Write(ctx, websocket.MessageBinary, payload); err != nil {
			return err
		}
	}
}

func (h *Hub) add(sessionID string, sub *subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[*subscriber]struct{})
	}
	h.subscribers[sessionID][sub] = struct{}{}
}

func (h *Hub) remove(sessionID string, sub *subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.subscribers[sessionID], sub)
	if len(h.subscribers[sessionID]) == 0 {
		delete(h.subscribers, sessionID)
	}
	sub.outbox.Close()
}
