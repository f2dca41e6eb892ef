// Package server wires HTTP routes and middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"subwayfeed/internal/handler"
)

// Server is the HTTP server for the realtime read API.
type Server struct {
	http   *http.Server
	logger *slog.Logger
}

// New creates a new Server with all routes registered.
func New(port int, h *handler.Handler, corsOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Realtime views
	mux.HandleFunc("GET /api/v1/transitrealtimedata", h.Snapshot)
	mux.HandleFunc("GET /api/v1/stations", h.Stations)
	mux.HandleFunc("GET /api/v1/stations/{id}/arrivals", h.StationArrivals)
	mux.HandleFunc("GET /api/v1/stations/{id}/arrivals/stream", h.StreamStationArrivals)

	// Operations
	mux.HandleFunc("GET /api/v1/feeds", h.Feeds)
	mux.HandleFunc("GET /healthz", h.Health)

	s := &Server{logger: logger}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           withMiddleware(mux, logger, corsOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the HTTP server. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
