package cache

import (
	"context"
	"time"
)

// TileTTL is how long a cached tile stays valid after write.
const TileTTL = 2 * time.Hour

// Backend is one storage tier for tile imagery. A missing tile is reported
// through the bool return of Fetch, never as an error.
type Backend interface {
	Store(ctx context.Context, tileID string, data []byte) error
	Fetch(ctx context.Context, tileID string) ([]byte, bool, error)
	// Existing returns the subset of tileIDs present in this tier.
	Existing(ctx context.Context, tileIDs []string) ([]string, error)
	Ping(ctx context.Context) error
}
