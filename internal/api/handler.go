package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/matheodrd/httphelper/handler"

	"routesight/internal/analysis"
	"routesight/internal/cache"
	"routesight/internal/notify"
	"routesight/internal/route"
	"routesight/internal/session"
)

const defaultHistoryLimit = 20

func (s *Server) computeRouteHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req route.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return handler.NewErrWithStatus(http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		}

		result, err := s.routes.ComputeRoute(r.Context(), req)
		switch {
		case errors.Is(err, route.ErrInvalidRequest):
			return handler.NewErrWithStatus(http.StatusBadRequest, err)
		case errors.Is(err, route.ErrRouteNotFound):
			return handler.NewErrWithStatus(http.StatusNotFound, err)
		case errors.Is(err, route.ErrProvider):
			return handler.NewErrWithStatus(http.StatusBadGateway, err)
		case err != nil:
			return handler.NewErrWithStatus(http.StatusInternalServerError, err)
		}

		return s.writeJSON(w, http.StatusOK, result)
	})
}

func (s *Server) pollTilesHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		result, err := s.tracker.Poll(r.Context(), r.PathValue("sessionID"))
		if errors.Is(err, session.ErrNotFound) {
			return handler.NewErrWithStatus(http.StatusNotFound, err)
		}
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, err)
		}
		return s.writeJSON(w, http.StatusOK, result)
	})
}

func (s *Server) deleteSessionHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		sessionID := r.PathValue("sessionID")
		if err := s.tracker.Delete(r.Context(), sessionID); err != nil {
			// Best-effort: a failed delete is logged, not surfaced.
			s.logger.Warn("failed to delete session", "sessionID", sessionID, "error", err)
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

// serveTileHandler serves cached tile bytes. A missing tile answers
// 202 Accepted with no body: not ready yet, poll again.
func (s *Server) serveTileHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		data, ok := s.tileCache.GetTile(r.Context(), r.PathValue("tileID"))
		if !ok {
			w.WriteHeader(http.StatusAccepted)
			return nil
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(cache.TileTTL.Seconds())))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.logger.Warn("failed to write tile response", "error", err)
		}
		return nil
	})
}

func (s *Server) analyzeHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		if s.analysis == nil {
			return handler.NewErrWithStatus(http.StatusServiceUnavailable, errors.New("analysis service not configured"))
		}

		sessionID := r.PathValue("sessionID")
		sess, err := s.tracker.Get(r.Context(), sessionID)
		if errors.Is(err, session.ErrNotFound) {
			return handler.NewErrWithStatus(http.StatusNotFound, err)
		}
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, err)
		}

		tileIDs := make([]string, len(sess.Tiles))
		for i, tile := range sess.Tiles {
			tileIDs[i] = tile.TileID
		}

		resp, err := s.analysis.Analyze(r.Context(), analysis.Request{
			SessionID: sessionID,
			TileIDs:   tileIDs,
		})
		if err != nil {
			return handler.NewErrWithStatus(http.StatusBadGateway, fmt.Errorf("analysis failed: %w", err))
		}
		return s.writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) historyHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				return handler.NewErrWithStatus(http.StatusBadRequest, errors.New("invalid limit"))
			}
			limit = parsed
		}

		summaries, err := s.tracker.Recent(r.Context(), limit)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, err)
		}
		if summaries == nil {
			summaries = []session.Summary{}
		}
		return s.writeJSON(w, http.StatusOK, summaries)
	})
}

func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			return handler.NewErrWithStatus(http.StatusBadRequest, errors.New("missing session_id"))
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("websocket accept: %w", err))
		}

		notify.NewClient(sessionID, conn, s.notifier).Start()
		return nil
	})
}
