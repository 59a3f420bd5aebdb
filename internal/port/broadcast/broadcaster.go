// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to the connected clients of one owner.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to every connection of ownerID.
	BroadcastEvent(ctx context.Context, ownerID, eventType string, payload any)
}
