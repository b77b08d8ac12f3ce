// Package httpadapter exposes health, readiness, metrics, and the event
// query API over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geofinch/disaster-monitor/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Querier serves event queries for the API endpoints.
type Querier interface {
	Query(ctx context.Context, filter domain.EventFilter) (domain.EventCursor, error)
}

// Server exposes /healthz, /readyz, /metrics, and the /api/events routes.
type Server struct {
	httpServer *http.Server
	querier    Querier
	logger     *slog.Logger
}

// NewServer creates the HTTP server. querier may be nil, in which case the
// API routes answer 503.
func NewServer(addr string, ready ReadinessChecker, querier Querier, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		querier: querier,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/similar", s.handleSimilar)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleEvents serves filter queries: ?min_lat=&max_lat=&min_lon=&max_lon=
// or ?lat=&lon=&radius_km=, plus ?from=&to= (RFC 3339 dates), ?category=
// (repeatable), ?limit=.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.querier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service not configured"})
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.serveQuery(w, r, filter)
}

// handleSimilar serves free-text similarity queries: ?text= plus the same
// optional constraints as /api/events.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.querier == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "query service not configured"})
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	filter.SimilarText = strings.TrimSpace(r.URL.Query().Get("text"))
	if filter.SimilarText == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text parameter is required"})
		return
	}

	s.serveQuery(w, r, filter)
}

func (s *Server) serveQuery(w http.ResponseWriter, r *http.Request, filter domain.EventFilter) {
	cur, err := s.querier.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("event query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	defer cur.Close(r.Context()) //nolint:errcheck // drain on response end

	events := make([]domain.CanonicalEvent, 0)
	for cur.Next(r.Context()) {
		events = append(events, cur.Event())
	}
	if err := cur.Err(); err != nil {
		s.logger.Error("event cursor failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// parseFilter builds an EventFilter from URL query parameters.
func parseFilter(r *http.Request) (domain.EventFilter, error) {
	q := r.URL.Query()
	var filter domain.EventFilter

	if q.Has("min_lat") || q.Has("max_lat") || q.Has("min_lon") || q.Has("max_lon") {
		b := &domain.Bounds{}
		var err error
		if b.MinLat, err = parseFloatParam(q.Get("min_lat")); err != nil {
			return filter, errors.New("invalid min_lat")
		}
		if b.MaxLat, err = parseFloatParam(q.Get("max_lat")); err != nil {
			return filter, errors.New("invalid max_lat")
		}
		if b.MinLon, err = parseFloatParam(q.Get("min_lon")); err != nil {
			return filter, errors.New("invalid min_lon")
		}
		if b.MaxLon, err = parseFloatParam(q.Get("max_lon")); err != nil {
			return filter, errors.New("invalid max_lon")
		}
		filter.Bounds = b
	} else if q.Has("lat") || q.Has("lon") || q.Has("radius_km") {
		n := &domain.PointRadius{}
		var err error
		if n.Center.Lat, err = parseFloatParam(q.Get("lat")); err != nil {
			return filter, errors.New("invalid lat")
		}
		if n.Center.Lon, err = parseFloatParam(q.Get("lon")); err != nil {
			return filter, errors.New("invalid lon")
		}
		if n.RadiusKm, err = parseFloatParam(q.Get("radius_km")); err != nil || n.RadiusKm <= 0 {
			return filter, errors.New("invalid radius_km")
		}
		filter.Near = n
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid from (want RFC 3339)")
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid to (want RFC 3339)")
		}
		filter.To = t
	}

	filter.Categories = q["category"]

	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > 2000 {
			return filter, errors.New("invalid limit (want 1-2000)")
		}
		filter.Limit = n
	}

	return filter, nil
}

func parseFloatParam(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("missing")
	}
	return strconv.ParseFloat(s, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
