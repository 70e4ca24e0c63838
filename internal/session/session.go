package session

import (
	"context"
	"errors"
	"time"

	"routesight/internal/gis"
	"routesight/internal/gis/routing"
)

var ErrNotFound = errors.New("session not found")

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
)

// Session is one routing+tiling request, tracked until explicitly deleted or
// expired by the store. Status and per-tile statuses are the only mutable
// fields; both are snapshots refreshed on poll.
type Session struct {
	ID          string                   `json:"session_id"`
	CreatedAt   time.Time                `json:"created_at"`
	Status      Status                   `json:"status"`
	Origin      gis.Point                `json:"origin"`
	Destination gis.Point                `json:"destination"`
	Routes      []routing.RouteCandidate `json:"routes"`
	Tiles       []gis.TileRef            `json:"tiles"`
	Metadata    map[string]string        `json:"metadata,omitempty"`
}

// Summary is the history-listing view of a session.
type Summary struct {
	ID          string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
	Origin      gis.Point `json:"origin"`
	Destination gis.Point `json:"destination"`
	TilesTotal  int       `json:"tiles_total"`
}

type Store interface {
	Set(ctx context.Context, session *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Recent(ctx context.Context, limit int) ([]Summary, error)
}
