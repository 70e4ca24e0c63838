package session

import (
	"context"
	"log/slog"
	"time"

	"routesight/internal/cache"
	"routesight/internal/gis"
)

// persistTimeout bounds detached store writes.
const persistTimeout = 5 * time.Second

// Tracker records sessions and answers readiness polls. Readiness is always
// recomputed live against the tile cache: the fetch pipeline never pushes
// status back into the session record synchronously, so the stored per-tile
// statuses are only the snapshot of the last poll.
type Tracker struct {
	store  Store
	cache  *cache.TileCache
	logger *slog.Logger
}

func NewTracker(store Store, tileCache *cache.TileCache, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, cache: tileCache, logger: logger}
}

// CreateAsync persists the session as a best-effort side effect, detached
// from the caller. The HTTP response carrying the session must not wait for
// the store.
func (t *Tracker) CreateAsync(session *Session) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := t.store.Set(ctx, session); err != nil {
			t.logger.Error("failed to persist session", "sessionID", session.ID, "error", err)
		}
	}()
}

type PollResult struct {
	Status       Status `json:"status"`
	TilesReady   int    `json:"tiles_ready"`
	TilesPending int    `json:"tiles_pending"`
	TilesTotal   int    `json:"tiles_total"`
}

// Poll re-derives readiness by batch-checking the session's not-yet-cached
// tile ids against the cache, updates the stored snapshot, and reports counts.
func (t *Tracker) Poll(ctx context.Context, sessionID string) (*PollResult, error) {
	session, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var unresolved []string
	for _, tile := range session.Tiles {
		if tile.Status != gis.TileStatusCached {
			unresolved = append(unresolved, tile.TileID)
		}
	}

	if len(unresolved) > 0 {
		nowCached := make(map[string]struct{})
		for _, id := range t.cache.CheckExisting(ctx, unresolved) {
			nowCached[id] = struct{}{}
		}
		for i, tile := range session.Tiles {
			if _, ok := nowCached[tile.TileID]; ok {
				session.Tiles[i].Status = gis.TileStatusCached
			}
		}
	}

	ready := 0
	for _, tile := range session.Tiles {
		if tile.Status == gis.TileStatusCached {
			ready++
		}
	}
	total := len(session.Tiles)

	status := StatusProcessing
	if ready == total {
		status = StatusReady
	}
	if session.Status != status || len(unresolved) > 0 {
		session.Status = status
		t.CreateAsync(session)
	}

	return &PollResult{
		Status:       status,
		TilesReady:   ready,
		TilesPending: total - ready,
		TilesTotal:   total,
	}, nil
}

func (t *Tracker) Get(ctx context.Context, sessionID string) (*Session, error) {
	return t.store.Get(ctx, sessionID)
}

// Delete removes the session record. Enqueued fetch jobs for it keep running;
// they are cheap and idempotent.
func (t *Tracker) Delete(ctx context.Context, sessionID string) error {
	return t.store.Delete(ctx, sessionID)
}

func (t *Tracker) Recent(ctx context.Context, limit int) ([]Summary, error) {
	return t.store.Recent(ctx, limit)
}
