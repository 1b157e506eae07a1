// Package server runs the admin HTTP surface: health, metrics, and the
// latest-batch summary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carelake/ingest/internal/config"
	"github.com/carelake/ingest/internal/logging"
	"github.com/carelake/ingest/internal/report"
)

// Server is the admin HTTP server.
type Server struct {
	http   *http.Server
	latest *report.Latest
	log    *slog.Logger
}

// New assembles the router and server.
func New(cfg config.ServerConfig, latest *report.Latest, log *slog.Logger) *Server {
	s := &Server{latest: latest, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/batches/latest", s.handleLatestBatch)

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start serves until Shutdown is called. Blocks.
func (s *Server) Start() error {
	s.log.Info("admin server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.latest.Get()
	if !ok {
		http.Error(w, "no batch has completed", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		logging.FromContext(r.Context()).Error("encode latest batch", "error", err)
	}
}
