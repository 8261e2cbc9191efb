// Package observability provides metrics, health checks and tracing for the
// logscout service.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Server serves the health and metrics endpoints on a port separate from the
// conversational API, so probes and scrapes never queue behind agent turns.
type Server struct {
	httpServer *http.Server
	checker    *Checker
	port       int
}

// NewServer creates the observability server around a checker.
func NewServer(port int, checker *Checker) *Server {
	return &Server{port: port, checker: checker}
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.checker.Handler())
	mux.HandleFunc("/health/live", s.checker.LivenessHandler())
	mux.HandleFunc("/health/ready", s.checker.ReadinessHandler())
	mux.Handle("/metrics", MetricsHandler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
