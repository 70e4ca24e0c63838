package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"routesight/internal/analysis"
	"routesight/internal/cache"
	"routesight/internal/config"
	"routesight/internal/notify"
	"routesight/internal/route"
	"routesight/internal/session"
)

type Server struct {
	Config    *config.Config
	logger    *slog.Logger
	routes    *route.Service
	tracker   *session.Tracker
	tileCache *cache.TileCache
	analysis  *analysis.Client
	notifier  *notify.Manager
}

func NewServer(
	config *config.Config,
	logger *slog.Logger,
	routes *route.Service,
	tracker *session.Tracker,
	tileCache *cache.TileCache,
	analysisClient *analysis.Client,
	notifier *notify.Manager,
) *Server {
	return &Server{
		Config:    config,
		logger:    logger,
		routes:    routes,
		tracker:   tracker,
		tileCache: tileCache,
		analysis:  analysisClient,
		notifier:  notifier,
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate;")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("API server is started.")); err != nil {
		s.logger.Error(fmt.Sprintf("Error writing response: %v", err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.Handle("POST /routes", s.computeRouteHandler())
	mux.Handle("GET /routes/history", s.historyHandler())
	mux.Handle("GET /routes/{sessionID}/tiles", s.pollTilesHandler())
	mux.Handle("DELETE /routes/{sessionID}", s.deleteSessionHandler())
	mux.Handle("POST /routes/{sessionID}/analyze", s.analyzeHandler())
	mux.Handle("GET /tiles/{tileID}", s.serveTileHandler())
	mux.Handle("GET /ws", s.wsHandler())

	server := &http.Server{
		Addr:    net.JoinHostPort(s.Config.APIServerHost, s.Config.APIServerPort),
		Handler: mux,
	}

	go func() {
		s.logger.Info("API server is running", "port", s.Config.APIServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server failed to listen and serve", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("API server failed to shutdown", "error", err)
		}
	}()

	wg.Wait()
	return nil
}
