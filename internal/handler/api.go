package handler

import (
	"errors"
	"net/http"
	"time"

	"subwayfeed/internal/repository"
	"subwayfeed/internal/storage"
)

// Snapshot serves the full realtime snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reader.Snapshot(r.Context())
	if h.readFailed(w, "snapshot", err) {
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// Stations serves the station list.
func (h *Handler) Stations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.reader.Stations(r.Context())
	if h.readFailed(w, "stations", err) {
		return
	}
	h.writeJSON(w, http.StatusOK, stations)
}

// StationArrivals serves upcoming arrivals at one stop, e.g. /api/v1/stations/127N/arrivals.
func (h *Handler) StationArrivals(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("id")
	arrivals, err := h.reader.StationArrivals(r.Context(), stopID)
	if h.readFailed(w, "station arrivals", err) {
		return
	}
	h.writeJSON(w, http.StatusOK, arrivals)
}

// Feeds serves the per-feed fetch status table.
func (h *Handler) Feeds(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		h.writeError(w, http.StatusServiceUnavailable, "feed status storage is disabled")
		return
	}
	statuses, err := h.status.FeedStatuses(r.Context())
	if err != nil {
		h.logger.Error("listing feed status", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if statuses == nil {
		statuses = []storage.FeedStatus{}
	}
	h.writeJSON(w, http.StatusOK, statuses)
}

type cycleView struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	DurationMS  int64     `json:"durationMs"`
	FeedsOK     int       `json:"feedsOk"`
	FeedsFailed int       `json:"feedsFailed"`
	Trains      int       `json:"trains"`
	Stations    int       `json:"stations"`
	Error       string    `json:"error,omitempty"`
}

type health struct {
	Status    string     `json:"status"`
	Store     string     `json:"store"`
	LastCycle *cycleView `json:"lastCycle,omitempty"`
}

// Health reports store reachability and the last collection cycle.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := health{Status: "ok", Store: "ok"}
	code := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("cache store ping failed", "error", err)
		resp.Status = "unavailable"
		resp.Store = err.Error()
		code = http.StatusServiceUnavailable
	}

	if h.cycles != nil {
		if c := h.cycles.Last(); c != nil {
			v := &cycleView{
				ID:          c.ID,
				StartedAt:   c.StartedAt,
				DurationMS:  c.Duration.Milliseconds(),
				FeedsOK:     c.FeedsOK,
				FeedsFailed: c.FeedsFailed,
				Trains:      c.Trains,
				Stations:    c.Stations,
			}
			if c.Err != nil {
				v.Error = c.Err.Error()
				if code == http.StatusOK {
					resp.Status = "degraded"
				}
			}
			resp.LastCycle = v
		}
	}

	h.writeJSON(w, code, resp)
}

// readFailed writes 404 for missing views and 500 for anything else.
func (h *Handler) readFailed(w http.ResponseWriter, view string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, view+" not available")
	default:
		h.logger.Error("reading "+view, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
