package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	tripfinder "github.com/mnrtools/tripfinder"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the trip finder API. Use /find-trips to find trips.\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Snapshot(); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "schedule not loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFindTrips(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	origin := r.URL.Query().Get("origin")
	destination := r.URL.Query().Get("destination")
	if origin == "" || destination == "" {
		s.collector.Queries.WithLabelValues("invalid_station").Inc()
		s.writeError(w, http.StatusBadRequest, "Both origin and destination parameters are required.")
		return
	}

	now := time.Now().In(s.cfg.Location)

	day := now
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, s.cfg.Location)
		if err != nil {
			s.collector.Queries.WithLabelValues("invalid_station").Inc()
			s.writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD.")
			return
		}
		day = parsed
	}

	snapshot, err := s.store.Snapshot()
	if err != nil {
		s.collector.Queries.WithLabelValues("error").Inc()
		s.writeError(w, http.StatusServiceUnavailable, "schedule not loaded")
		return
	}

	overlay := s.fetchOverlay(r.Context())

	connections, err := snapshot.FindTrips(origin, destination, day, now, overlay)
	if err != nil {
		if errors.Is(err, tripfinder.ErrUnknownStation) {
			s.collector.Queries.WithLabelValues("invalid_station").Inc()
			s.writeError(w, http.StatusBadRequest, "Invalid station names.")
			return
		}
		s.collector.Queries.WithLabelValues("error").Inc()
		s.logger.Error("trip query failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve trips.")
		return
	}

	s.collector.Queries.WithLabelValues("ok").Inc()
	s.collector.QueryDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("trip query",
		zap.String("origin", origin),
		zap.String("destination", destination),
		zap.Int("results", len(connections)),
		zap.Duration("duration", time.Since(start)),
	)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"trips": connections,
	})
}

// fetchOverlay retrieves live delay data for a single query. Failures
// are logged and counted, never surfaced; the query proceeds with no
// overlay.
func (s *Server) fetchOverlay(ctx context.Context) *tripfinder.Overlay {
	if s.cfg.RealtimeURL == "" {
		return nil
	}

	overlay, err := tripfinder.FetchOverlay(ctx, s.downloader, s.cfg.RealtimeURL)
	if err != nil {
		s.collector.OverlayErrors.Inc()
		s.logger.Warn("failed to fetch realtime updates", zap.Error(err))
		return nil
	}
	return overlay
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
