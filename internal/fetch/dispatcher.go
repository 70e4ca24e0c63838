package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"routesight/internal/cache"
	"routesight/internal/gis"
	"routesight/internal/notify"
)

// TileFetcher is the external imagery provider seen by the dispatcher.
type TileFetcher interface {
	FetchTile(ctx context.Context, center gis.Point, zoom uint8) ([]byte, error)
}

// Job is one tile download on behalf of one session.
type Job struct {
	Tile      gis.TileRef
	SessionID string
}

type Options struct {
	Workers       int
	RatePerSecond float64
	QueueSize     int
	MaxAttempts   int
	BackoffBase   time.Duration
}

func DefaultOptions() Options {
	return Options{
		Workers:       20,
		RatePerSecond: 50,
		QueueSize:     4096,
		MaxAttempts:   3,
		BackoffBase:   500 * time.Millisecond,
	}
}

// Dispatcher is the background fetch-and-cache pipeline: a fixed worker pool
// draining a FIFO queue, throttled by a single token bucket shared across all
// workers: the cap is the provider's quota, not a per-worker budget. Burst
// stays at 1 so no one-second window ever exceeds the configured rate.
type Dispatcher struct {
	fetcher  TileFetcher
	cache    *cache.TileCache
	notifier notify.Notifier
	limiter  *rate.Limiter
	queue    chan Job
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string][]string // tileID -> sessions awaiting it
}

func NewDispatcher(fetcher TileFetcher, tileCache *cache.TileCache, notifier notify.Notifier, logger *slog.Logger, options ...Options) *Dispatcher {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Dispatcher{
		fetcher:  fetcher,
		cache:    tileCache,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		queue:    make(chan Job, opts.QueueSize),
		opts:     opts,
		logger:   logger,
		inflight: make(map[string][]string),
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; queued
// jobs are abandoned at shutdown, which is safe since jobs are idempotent and
// re-enqueued by any fresh route request.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.opts.Workers; i++ {
		go d.worker(ctx)
	}
	d.logger.Info("fetch dispatcher started", "workers", d.opts.Workers, "ratePerSecond", d.opts.RatePerSecond)
}

// Enqueue schedules each tile as an independent job and returns immediately.
// A tile already in flight is not fetched twice: the session is recorded as
// an additional waiter and notified when the original job completes. A full
// queue drops the job with a log line; the tile stays pending and a later
// route request re-enqueues it. The in-flight entry is registered in the same
// critical section as the queue send, so a dropped job never leaves an entry
// other sessions could wait on.
func (d *Dispatcher) Enqueue(tiles []gis.TileRef, sessionID string) {
	for _, tile := range tiles {
		d.mu.Lock()
		if waiters, ok := d.inflight[tile.TileID]; ok {
			d.inflight[tile.TileID] = append(waiters, sessionID)
			d.mu.Unlock()
			continue
		}
		select {
		case d.queue <- Job{Tile: tile, SessionID: sessionID}:
			d.inflight[tile.TileID] = []string{sessionID}
			d.mu.Unlock()
		default:
			d.mu.Unlock()
			d.logger.Warn("fetch queue full, dropping tile", "tileID", tile.TileID, "sessionID", sessionID)
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case job := <-d.queue:
			d.run(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// run executes one job: up to MaxAttempts provider calls, each gated by the
// shared limiter, with the backoff delay doubling between attempts. Exhausted
// jobs are logged and dropped; the tile simply never turns cached.
func (d *Dispatcher) run(ctx context.Context, job Job) {
	defer d.clearInflight(job.Tile.TileID)

	backoff := d.opts.BackoffBase
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return
		}

		data, err := d.fetcher.FetchTile(ctx, job.Tile.Center, job.Tile.Zoom)
		if err == nil {
			d.cache.StoreTile(ctx, job.Tile.TileID, data)
			waiters := d.clearInflight(job.Tile.TileID)
			for _, sessionID := range waiters {
				d.notifier.Publish(ctx, sessionID, notify.Event{
					Type:      notify.EventTileReady,
					SessionID: sessionID,
					TileID:    job.Tile.TileID,
				})
			}
			return
		}

		d.logger.Warn("tile fetch attempt failed",
			"tileID", job.Tile.TileID, "attempt", attempt, "error", err)

		if attempt == d.opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return
		}
	}

	d.logger.Error("tile fetch exhausted, giving up", "tileID", job.Tile.TileID, "sessionID", job.SessionID)
}

// clearInflight removes the tile's in-flight entry and returns the sessions
// that were waiting on it. Safe to call more than once per job.
func (d *Dispatcher) clearInflight(tileID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	waiters := d.inflight[tileID]
	delete(d.inflight, tileID)
	return waiters
}
