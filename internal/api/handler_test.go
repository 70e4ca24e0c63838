package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routesight/internal/cache"
	"routesight/internal/config"
	"routesight/internal/gis"
	"routesight/internal/gis/routing"
	"routesight/internal/route"
	"routesight/internal/session"
)

type fakeProvider struct {
	routes []routing.RouteCandidate
	err    error
}

func (f *fakeProvider) ComputeRoutes(context.Context, routing.RouteRequest) ([]routing.RouteCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.routes, nil
}

type fakeEnqueuer struct{}

func (fakeEnqueuer) Enqueue([]gis.TileRef, string) {}

func newTestServer(t *testing.T, provider route.RouteProvider) (*Server, *cache.TileCache, *session.MemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tileCache := cache.NewTileCache(context.Background(),
		cache.NewMemoryTileBackend(cache.TileTTL),
		cache.NewMemoryTileBackend(cache.TileTTL),
		logger)
	store := session.NewMemoryStore()
	tracker := session.NewTracker(store, tileCache, logger)
	svc := route.NewService(provider, tileCache, fakeEnqueuer{}, tracker, logger)
	server := NewServer(&config.Config{}, logger, svc, tracker, tileCache, nil, nil)
	return server, tileCache, store
}

func TestServeTile_CachedTile(t *testing.T) {
	server, tileCache, _ := newTestServer(t, &fakeProvider{})
	tileCache.StoreTile(context.Background(), "t_19_1_1", []byte("imgbytes"))

	req := httptest.NewRequest(http.MethodGet, "/tiles/t_19_1_1", nil)
	req.SetPathValue("tileID", "t_19_1_1")
	rec := httptest.NewRecorder()
	server.serveTileHandler()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "imgbytes", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=7200", rec.Header().Get("Cache-Control"))
}

func TestServeTile_NotReadyAnswers202(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/tiles/t_19_9_9", nil)
	req.SetPathValue("tileID", "t_19_9_9")
	rec := httptest.NewRecorder()
	server.serveTileHandler()(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestComputeRoute_InvalidBody(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodPost, "/routes", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	server.computeRouteHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeRoute_MissingDestination(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodPost, "/routes",
		strings.NewReader(`{"origin": {"lat": 48.85, "lng": 2.29}}`))
	rec := httptest.NewRecorder()
	server.computeRouteHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeRoute_RouteNotFound(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{err: routing.ErrNoRoute})

	req := httptest.NewRequest(http.MethodPost, "/routes",
		strings.NewReader(`{"origin": {"lat": 48.85, "lng": 2.29}, "destination": {"lat": 48.86, "lng": 2.30}}`))
	rec := httptest.NewRecorder()
	server.computeRouteHandler()(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComputeRoute_ReturnsPartition(t *testing.T) {
	polyline := gis.EncodePolyline([]gis.Point{{Lat: 48.85, Lng: 2.29}, {Lat: 48.851, Lng: 2.291}})
	server, _, _ := newTestServer(t, &fakeProvider{routes: []routing.RouteCandidate{{
		Label:           "primary",
		EncodedPolyline: polyline,
	}}})

	req := httptest.NewRequest(http.MethodPost, "/routes",
		strings.NewReader(`{"origin": {"lat": 48.85, "lng": 2.29}, "destination": {"lat": 48.851, "lng": 2.291}}`))
	rec := httptest.NewRecorder()
	server.computeRouteHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result route.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, session.StatusProcessing, result.Status)
	assert.NotEmpty(t, result.Tiles.Pending)
	assert.Equal(t, result.Tiles.Total, len(result.Tiles.Ready)+len(result.Tiles.Pending))
}

func TestPollTiles_UnknownSession(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/routes/nope/tiles", nil)
	req.SetPathValue("sessionID", "nope")
	rec := httptest.NewRecorder()
	server.pollTilesHandler()(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPollTiles_ReportsCounts(t *testing.T) {
	server, tileCache, store := newTestServer(t, &fakeProvider{})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &session.Session{
		ID:     "s1",
		Status: session.StatusProcessing,
		Tiles: []gis.TileRef{
			{TileID: "t_19_1_1", Zoom: 19, Status: gis.TileStatusPending},
			{TileID: "t_19_2_2", Zoom: 19, Status: gis.TileStatusPending},
		},
	}))
	tileCache.StoreTile(ctx, "t_19_1_1", []byte("img"))

	req := httptest.NewRequest(http.MethodGet, "/routes/s1/tiles", nil)
	req.SetPathValue("sessionID", "s1")
	rec := httptest.NewRecorder()
	server.pollTilesHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result session.PollResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, session.StatusProcessing, result.Status)
	assert.Equal(t, 1, result.TilesReady)
	assert.Equal(t, 1, result.TilesPending)
	assert.Equal(t, 2, result.TilesTotal)
}

func TestDeleteSession_IsBestEffort(t *testing.T) {
	server, _, store := newTestServer(t, &fakeProvider{})
	require.NoError(t, store.Set(context.Background(), &session.Session{ID: "s1"}))

	req := httptest.NewRequest(http.MethodDelete, "/routes/s1", nil)
	req.SetPathValue("sessionID", "s1")
	rec := httptest.NewRecorder()
	server.deleteSessionHandler()(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestHistory_EmptyList(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/routes/history", nil)
	rec := httptest.NewRecorder()
	server.historyHandler()(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHistory_InvalidLimit(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/routes/history?limit=banana", nil)
	rec := httptest.NewRecorder()
	server.historyHandler()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_NotConfigured(t *testing.T) {
	server, _, _ := newTestServer(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodPost, "/routes/s1/analyze", nil)
	req.SetPathValue("sessionID", "s1")
	rec := httptest.NewRecorder()
	server.analyzeHandler()(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
