// Package http serves the operational endpoints of a running upload:
// liveness, database readiness, batch progress and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

const readyTimeout = 2 * time.Second

// ReadinessChecker reports whether the database is reachable.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ProgressReporter exposes the state of the running batch.
type ProgressReporter interface {
	Progress() pipeline.Progress
}

// Server is the sidecar HTTP listener started next to a batch.
type Server struct {
	httpServer *http.Server
	progress   ProgressReporter
	logger     *slog.Logger
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status string `json:"status"`
	Batch  string `json:"batch"`
	RunID  string `json:"run_id,omitempty"`
}

// readyResponse is the /readyz body.
type readyResponse struct {
	Status    string `json:"status"`
	Component string `json:"component,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewServer routes /healthz, /readyz, /status and /metrics.
func NewServer(addr string, ready ReadinessChecker, progress ProgressReporter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		progress: progress,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady(ready))
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

// Start listens until Shutdown, returning http.ErrServerClosed then.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	p := s.progress.Progress()
	resp := healthResponse{Status: "healthy", Batch: "idle", RunID: p.RunID}
	if p.Running {
		resp.Batch = "running"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReady fails while the database cannot be pinged.
func (s *Server) handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, readyResponse{
				Status:    "not ready",
				Component: "database",
				Error:     err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.progress.Progress())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // the client may already be gone
}
