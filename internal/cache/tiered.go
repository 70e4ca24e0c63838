package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// TileCache fronts a primary (networked) tier with a durable fallback tier.
// Tier selection happens once at construction: if the primary does not answer
// a ping, the cache runs fallback-only until the health-check loop re-promotes
// it. Cache trouble never propagates to callers; a failed read just means
// "not cached".
type TileCache struct {
	primary   Backend
	fallback  Backend
	primaryUp atomic.Bool
	logger    *slog.Logger
}

func NewTileCache(ctx context.Context, primary, fallback Backend, logger *slog.Logger) *TileCache {
	c := &TileCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	if err := primary.Ping(ctx); err != nil {
		logger.Warn("primary tile cache unreachable, using fallback tier", "error", err)
	} else {
		c.primaryUp.Store(true)
	}
	return c
}

// StartHealthCheck periodically re-probes the primary tier and flips the
// selector, so a Redis outage at boot does not demote the cache forever.
func (c *TileCache) StartHealthCheck(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			up := c.primary.Ping(ctx) == nil
			if up != c.primaryUp.Load() {
				c.logger.Info("primary tile cache availability changed", "up", up)
				c.primaryUp.Store(up)
			}
		case <-ctx.Done():
			return
		}
	}
}

// StoreTile writes to the active tier, degrading to the fallback tier on
// primary errors. Failures are logged, never raised.
func (c *TileCache) StoreTile(ctx context.Context, tileID string, data []byte) {
	if c.primaryUp.Load() {
		err := c.primary.Store(ctx, tileID, data)
		if err == nil {
			return
		}
		c.logger.Warn("primary tile store failed, falling back", "tileID", tileID, "error", err)
	}
	if err := c.fallback.Store(ctx, tileID, data); err != nil {
		c.logger.Error("fallback tile store failed", "tileID", tileID, "error", err)
	}
}

// GetTile checks the primary tier first, then the fallback. Absence is not an
// error; callers interpret it as "not ready yet".
func (c *TileCache) GetTile(ctx context.Context, tileID string) ([]byte, bool) {
	if c.primaryUp.Load() {
		data, ok, err := c.primary.Fetch(ctx, tileID)
		if err != nil {
			c.logger.Warn("primary tile fetch failed", "tileID", tileID, "error", err)
		} else if ok {
			return data, true
		}
	}
	data, ok, err := c.fallback.Fetch(ctx, tileID)
	if err != nil {
		c.logger.Warn("fallback tile fetch failed", "tileID", tileID, "error", err)
		return nil, false
	}
	return data, ok
}

// CheckExisting returns the subset of tileIDs currently cached. Against the
// primary tier this is a single batched round trip; the fallback tier is
// consulted per-id only when the primary is unavailable. On total failure it
// returns nothing, which merely classifies more tiles as pending.
func (c *TileCache) CheckExisting(ctx context.Context, tileIDs []string) []string {
	if len(tileIDs) == 0 {
		return nil
	}
	if c.primaryUp.Load() {
		existing, err := c.primary.Existing(ctx, tileIDs)
		if err == nil {
			return existing
		}
		c.logger.Warn("primary existence check failed, falling back", "error", err)
	}
	existing, err := c.fallback.Existing(ctx, tileIDs)
	if err != nil {
		c.logger.Warn("fallback existence check failed", "error", err)
		return nil
	}
	return existing
}
