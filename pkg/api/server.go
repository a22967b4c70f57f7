// Package api exposes the agent's metrics over HTTP for Prometheus scraping.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 10 * time.Second

// Server serves /metrics, /health, and / on the configured address. Every
// handler does exactly one snapshot read (through the registered exporters)
// and one rendering pass; it never blocks on the collector.
type Server struct {
	listenAddr string
	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds the exposition server around a dedicated registry holding
// the given collectors. No global registry is used.
func NewServer(listenAddr string, collectors ...prometheus.Collector) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)

	s := &Server{
		listenAddr: listenAddr,
		router:     mux.NewRouter(),
	}

	s.setupRoutes(registry)

	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.Handle("/metrics",
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Process liveness only, independent of node health.
	s.router.HandleFunc("/health", s.handleLiveness).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleLiveness).Methods(http.MethodGet)
}

func (*Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("OK")); err != nil {
		log.Printf("Error writing liveness response: %v", err)
	}
}

// Router returns the request handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start binds the listen address and serves until Shutdown. A bind failure
// is returned to the caller and is fatal at startup.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Printf("Metrics server listening on http://%s/metrics", s.listenAddr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	log.Printf("Stopping metrics server...")

	return s.httpServer.Shutdown(ctx)
}
