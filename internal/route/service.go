package route

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"routesight/internal/cache"
	"routesight/internal/gis"
	"routesight/internal/gis/routing"
	"routesight/internal/session"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRouteNotFound  = errors.New("route not found")
	ErrProvider       = errors.New("route provider error")
)

// RouteProvider computes drivable routes; it is an external collaborator.
type RouteProvider interface {
	ComputeRoutes(ctx context.Context, req routing.RouteRequest) ([]routing.RouteCandidate, error)
}

// Enqueuer schedules background tile fetches.
type Enqueuer interface {
	Enqueue(tiles []gis.TileRef, sessionID string)
}

type Options struct {
	SamplingIntervalMeters float64
	Zoom                   uint8
}

func DefaultOptions() Options {
	return Options{
		SamplingIntervalMeters: 30,
		Zoom:                   19,
	}
}

// Service is the route orchestrator: route → resample → tile grid →
// cache partition → enqueue misses → persist session → return, all before
// any pending tile has been fetched.
type Service struct {
	provider   RouteProvider
	cache      *cache.TileCache
	dispatcher Enqueuer
	tracker    *session.Tracker
	opts       Options
	logger     *slog.Logger
}

func NewService(provider RouteProvider, tileCache *cache.TileCache, dispatcher Enqueuer, tracker *session.Tracker, logger *slog.Logger, options ...Options) *Service {
	opts := DefaultOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &Service{
		provider:   provider,
		cache:      tileCache,
		dispatcher: dispatcher,
		tracker:    tracker,
		opts:       opts,
		logger:     logger,
	}
}

type Request struct {
	Origin      *gis.Point      `json:"origin"`
	Destination *gis.Point      `json:"destination"`
	Options     *RequestOptions `json:"options,omitempty"`
}

type RequestOptions struct {
	SamplingIntervalMeters float64 `json:"sampling_interval_meters,omitempty"`
	Alternatives           bool    `json:"alternatives,omitempty"`
}

// Tile is a TileRef plus the caller-facing retrieval path.
type Tile struct {
	gis.TileRef
	Path string `json:"path"`
}

type TilesResult struct {
	Ready   []Tile `json:"ready"`
	Pending []Tile `json:"pending"`
	Total   int    `json:"total"`
}

type Result struct {
	SessionID string                   `json:"session_id"`
	Status    session.Status           `json:"status"`
	Routes    []routing.RouteCandidate `json:"routes"`
	Tiles     TilesResult              `json:"tiles"`
}

// ComputeRoute runs the synchronous pipeline. Only the first (primary) route
// is tiled; alternatives are returned to the caller untouched. The response
// is ready as soon as pending tiles are enqueued; it never waits on a
// download.
func (s *Service) ComputeRoute(ctx context.Context, req Request) (*Result, error) {
	if req.Origin == nil || req.Destination == nil {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidRequest)
	}
	if !req.Origin.Validate() || !req.Destination.Validate() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrInvalidRequest)
	}

	interval := s.opts.SamplingIntervalMeters
	alternatives := false
	if req.Options != nil {
		if req.Options.SamplingIntervalMeters > 0 {
			interval = req.Options.SamplingIntervalMeters
		}
		alternatives = req.Options.Alternatives
	}

	routes, err := s.provider.ComputeRoutes(ctx, routing.RouteRequest{
		Origin:            *req.Origin,
		Destination:       *req.Destination,
		TravelMode:        routing.TravelModeDrive,
		RoutingPreference: routing.PreferTrafficAware,
		Alternatives:      alternatives,
	})
	if errors.Is(err, routing.ErrNoRoute) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	// Not every RouteProvider maps zero routes to an error.
	if len(routes) == 0 {
		return nil, ErrRouteNotFound
	}

	primary := routes[0]
	samples := gis.Resample(primary.EncodedPolyline, interval)
	tiles := gis.TileGrid(samples, s.opts.Zoom)

	ids := make([]string, len(tiles))
	for i, t := range tiles {
		ids[i] = t.TileID
	}
	cached := make(map[string]struct{})
	for _, id := range s.cache.CheckExisting(ctx, ids) {
		cached[id] = struct{}{}
	}

	sessionID := uuid.New().String()
	result := Result{
		SessionID: sessionID,
		Routes:    routes,
	}
	var pending []gis.TileRef
	for i := range tiles {
		if _, ok := cached[tiles[i].TileID]; ok {
			tiles[i].Status = gis.TileStatusCached
			result.Tiles.Ready = append(result.Tiles.Ready, newTile(tiles[i]))
		} else {
			pending = append(pending, tiles[i])
			result.Tiles.Pending = append(result.Tiles.Pending, newTile(tiles[i]))
		}
	}
	result.Tiles.Total = len(tiles)

	if len(pending) > 0 {
		s.dispatcher.Enqueue(pending, sessionID)
		result.Status = session.StatusProcessing
	} else {
		result.Status = session.StatusReady
	}

	s.tracker.CreateAsync(&session.Session{
		ID:          sessionID,
		CreatedAt:   time.Now().UTC(),
		Status:      result.Status,
		Origin:      *req.Origin,
		Destination: *req.Destination,
		Routes:      routes,
		Tiles:       tiles,
	})

	s.logger.Info("route computed",
		"sessionID", sessionID,
		"routes", len(routes),
		"samples", len(samples),
		"tilesTotal", len(tiles),
		"tilesPending", len(pending))

	return &result, nil
}

func newTile(ref gis.TileRef) Tile {
	return Tile{TileRef: ref, Path: "/tiles/" + ref.TileID}
}
