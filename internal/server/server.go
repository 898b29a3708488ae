package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/config"
	"github.com/hazz-dev/resmon/internal/engine"
)

// HealthService defines the engine operations the server needs.
type HealthService interface {
	CheckAll(ctx context.Context) engine.AggregateHealth
	CheckOne(ctx context.Context, name string) (check.Result, error)
	Refresh(ctx context.Context, name string) (check.Result, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	health    HealthService
	resources []config.Resource
	router    chi.Router
	logger    *slog.Logger
}

// New creates a new Server and registers all routes.
func New(health HealthService, resources []config.Resource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		health:    health,
		resources: resources,
		router:    chi.NewRouter(),
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/resources", s.handleListResources)
	r.Get("/api/resources/{name}", s.handleGetResource)
	r.Post("/api/resources/{name}/check", s.handleRefreshResource)
	r.Handle("/metrics", promhttp.Handler())
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	agg := s.health.CheckAll(r.Context())

	status := http.StatusOK
	if agg.Status == check.StatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]check.Status{"status": agg.Status})
}

type resourceDetail struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Enabled bool              `json:"enabled"`
	TTL     string            `json:"ttl"`
	Labels  map[string]string `json:"labels,omitempty"`
	Result  check.Result      `json:"result"`
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	agg := s.health.CheckAll(r.Context())

	details := make([]resourceDetail, 0, len(s.resources))
	for i, res := range s.resources {
		details = append(details, resourceDetail{
			Name:    res.Name,
			Type:    res.Type,
			Enabled: res.Enabled,
			TTL:     res.TTL.Duration.String(),
			Labels:  res.Labels,
			Result:  agg.Results[i],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    agg.Status,
		"resources": details,
	})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.health.CheckOne(r.Context(), name)
	if errors.Is(err, engine.ErrNotFound) {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if err != nil {
		s.logger.Error("CheckOne", "resource", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefreshResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	result, err := s.health.Refresh(r.Context(), name)
	if errors.Is(err, engine.ErrNotFound) {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}
	if err != nil {
		s.logger.Error("Refresh", "resource", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
