// Package handler serves the cached realtime views as JSON.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"subwayfeed/internal/collector"
	"subwayfeed/internal/repository"
	"subwayfeed/internal/storage"
)

// Pinger reports cache store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CycleReporter exposes the most recent collection cycle.
type CycleReporter interface {
	Last() *collector.CycleResult
}

// StatusLister lists per-feed fetch outcomes.
type StatusLister interface {
	FeedStatuses(ctx context.Context) ([]storage.FeedStatus, error)
}

// Options holds optional dependencies.
type Options struct {
	Cycles         CycleReporter // nil = no lastCycle in health
	Status         StatusLister  // nil = /api/v1/feeds returns 503
	StreamInterval time.Duration // SSE push period, 0 = 30s
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	reader         repository.Reader
	store          Pinger
	cycles         CycleReporter
	status         StatusLister
	streamInterval time.Duration
	logger         *slog.Logger
}

// New creates a Handler.
func New(reader repository.Reader, store Pinger, logger *slog.Logger, opts Options) *Handler {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 30 * time.Second
	}
	return &Handler{
		reader:         reader,
		store:          store,
		cycles:         opts.Cycles,
		status:         opts.Status,
		streamInterval: opts.StreamInterval,
		logger:         logger,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorBody{Error: msg})
}
