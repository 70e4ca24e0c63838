package notify

import (
	"context"
)

const EventTileReady = "tile_ready"

// Event is one session-scoped notification.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	TileID    string `json:"tile_id,omitempty"`
}

// Notifier publishes events to whoever is subscribed to a session. The fetch
// pipeline depends on this interface only, not on any transport.
type Notifier interface {
	Publish(ctx context.Context, sessionID string, event Event)
}

// NoopNotifier drops every event. Used when no push transport is wired.
type NoopNotifier struct{}

func (NoopNotifier) Publish(context.Context, string, Event) {}
