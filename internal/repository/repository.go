// Package repository stores and reads the three cached views of a
// collection cycle: the full snapshot, per-station arrivals and the
// station list.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"subwayfeed/internal/cache"
	"subwayfeed/internal/realtime"
)

// ErrNotFound is returned by reads when a view is missing or expired.
var ErrNotFound = errors.New("not found")

// stationWriteLimit bounds concurrent per-station writes.
const stationWriteLimit = 16

// Writer is the write side used by the collector.
type Writer interface {
	StoreSnapshot(ctx context.Context, snap *realtime.Snapshot) error
	StoreArrivalsByStation(ctx context.Context, arrivals []realtime.Arrival) error
	StoreStations(ctx context.Context, stations []realtime.Station) error
}

// Reader is the read side used by HTTP handlers. Reads never fetch.
type Reader interface {
	Snapshot(ctx context.Context) (*realtime.Snapshot, error)
	StationArrivals(ctx context.Context, stopID string) ([]realtime.Arrival, error)
	Stations(ctx context.Context) ([]realtime.Station, error)
}

// TTLs holds the lifetime of each view.
type TTLs struct {
	Snapshot        time.Duration
	StationArrivals time.Duration
	Stations        time.Duration
}

// DefaultTTLs returns 2m for realtime views and 1h for the station list.
func DefaultTTLs() TTLs {
	return TTLs{
		Snapshot:        2 * time.Minute,
		StationArrivals: 2 * time.Minute,
		Stations:        time.Hour,
	}
}

// Repository implements Writer and Reader over a cache.Store.
type Repository struct {
	store  cache.Store
	prefix string
	ttl    TTLs
}

// New creates a Repository. An empty prefix defaults to "mta".
func New(store cache.Store, prefix string, ttl TTLs) *Repository {
	if prefix == "" {
		prefix = "mta"
	}
	return &Repository{store: store, prefix: prefix, ttl: ttl}
}

// SnapshotKey is the key of the full snapshot view.
func (r *Repository) SnapshotKey() string {
	return r.prefix + ":realtime:all_data"
}

// StationKey is the key of one station's arrivals.
func (r *Repository) StationKey(stopID string) string {
	return r.prefix + ":realtime:station:" + stopID
}

// StationsKey is the key of the station list.
func (r *Repository) StationsKey() string {
	return r.prefix + ":stations"
}

func (r *Repository) StoreSnapshot(ctx context.Context, snap *realtime.Snapshot) error {
	return r.put(ctx, r.SnapshotKey(), snap, r.ttl.Snapshot)
}

// StoreArrivalsByStation writes each stop's arrivals, sorted by time, under
// its station key. Arrivals without an arrival time are skipped. All writes
// run to completion; the first error is returned.
func (r *Repository) StoreArrivalsByStation(ctx context.Context, arrivals []realtime.Arrival) error {
	byStop := make(map[string][]realtime.Arrival)
	for _, a := range arrivals {
		if a.ArrivalTime == nil {
			continue
		}
		byStop[a.StationID] = append(byStop[a.StationID], a)
	}

	var g errgroup.Group
	g.SetLimit(stationWriteLimit)
	for stopID, group := range byStop {
		realtime.SortByArrival(group)
		g.Go(func() error {
			return r.put(ctx, r.StationKey(stopID), group, r.ttl.StationArrivals)
		})
	}
	return g.Wait()
}

func (r *Repository) StoreStations(ctx context.Context, stations []realtime.Station) error {
	if stations == nil {
		stations = []realtime.Station{}
	}
	return r.put(ctx, r.StationsKey(), stations, r.ttl.Stations)
}

func (r *Repository) Snapshot(ctx context.Context) (*realtime.Snapshot, error) {
	var snap realtime.Snapshot
	if err := r.get(ctx, r.SnapshotKey(), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *Repository) StationArrivals(ctx context.Context, stopID string) ([]realtime.Arrival, error) {
	var arrivals []realtime.Arrival
	if err := r.get(ctx, r.StationKey(stopID), &arrivals); err != nil {
		return nil, err
	}
	return arrivals, nil
}

func (r *Repository) Stations(ctx context.Context) ([]realtime.Station, error) {
	var stations []realtime.Station
	if err := r.get(ctx, r.StationsKey(), &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

func (r *Repository) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(data), ttl); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, key string, v any) error {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
