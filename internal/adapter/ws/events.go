package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Strob0t/StackForge/internal/port/broadcast"
)

// writeTimeout bounds a single push so one stalled client cannot hold up
// the service call that emitted the event.
const writeTimeout = 5 * time.Second

// Compile-time interface check.
var _ broadcast.Broadcaster = (*Hub)(nil)

// BroadcastEvent sends a typed event to ownerID's connections. Nothing is
// marshaled when the owner has none open.
func (h *Hub) BroadcastEvent(ctx context.Context, ownerID, eventType string, payload any) {
	if !h.connected(ownerID) {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	h.BroadcastToOwner(ctx, ownerID, Message{Type: eventType, Payload: data})
}

func (h *Hub) connected(ownerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if c.ownerID == ownerID {
			return true
		}
	}
	return false
}
