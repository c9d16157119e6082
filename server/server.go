// Package server hosts the HTTP surface of the process: liveness, readiness
// and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/diasporalink/api/logging"
	"github.com/diasporalink/api/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RequestIDHeader = "X-Request-ID"

	defaultReadyTimeout      = 2 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
)

// Database is the part of postgres.Manager the readiness probe needs.
type Database interface {
	DB() (postgres.DB, error)
	State() postgres.State
}

type Server struct {
	httpServer   *http.Server
	db           Database
	gatherer     prometheus.Gatherer
	logger       logging.Logger
	readyTimeout time.Duration
}

type statusResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// New builds a server listening on addr. gatherer may be nil, in which case
// /metrics is not mounted.
func New(addr string, db Database, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Server{
		db:           db,
		gatherer:     gatherer,
		logger:       logger,
		readyTimeout: defaultReadyTimeout,
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// ListenAndServe blocks until the server stops. A server stopped through
// Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.logger.Infof("HTTP server listening on %s", ln.Addr())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped")

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	db, err := s.db.DB()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Database: s.db.State().String()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		s.logger.WithField("request_id", RequestIDFromContext(r.Context())).Warnf("Readiness ping failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Database: "unreachable"})

		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ready", Database: postgres.StateConnected.String()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
