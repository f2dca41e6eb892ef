package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"subwayfeed/internal/repository"
)

// StreamStationArrivals pushes a stop's arrivals via Server-Sent Events on
// every stream interval, so a web client can skip polling.
func (h *Handler) StreamStationArrivals(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("id")
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	h.sendArrivalsEvent(ctx, w, flusher, stopID)

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sendArrivalsEvent(ctx, w, flusher, stopID)
		case <-ctx.Done():
			return
		}
	}
}

// sendArrivalsEvent writes one "arrivals" event. A missing view is sent as an
// empty list.
func (h *Handler) sendArrivalsEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, stopID string) {
	arrivals, err := h.reader.StationArrivals(ctx, stopID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("reading SSE station arrivals", "stop", stopID, "error", err)
		return
	}

	data, err := json.Marshal(arrivals)
	if err != nil {
		h.logger.Error("encoding SSE station arrivals", "error", err)
		return
	}
	if arrivals == nil {
		data = []byte("[]")
	}

	fmt.Fprintf(w, "event: arrivals\n")
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
