// Package collector runs the periodic fetch, normalize and publish cycle.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"subwayfeed/internal/feeds"
	"subwayfeed/internal/realtime"
	"subwayfeed/internal/repository"
	"subwayfeed/internal/storage"
)

// DefaultInterval is the time between cycles.
const DefaultInterval = 30 * time.Second

// Fetcher fetches every feed and reports one result per feed, in order.
type Fetcher interface {
	FetchAll(ctx context.Context, fs []feeds.Feed) []realtime.FeedResult
}

// StatusRecorder persists per-feed outcomes.
type StatusRecorder interface {
	RecordFeedStatus(ctx context.Context, s storage.FeedStatus) error
}

// Options configures a Collector.
type Options struct {
	Interval time.Duration  // 0 = DefaultInterval
	Status   StatusRecorder // optional
	// EndpointFor returns the URL recorded with a feed's status.
	EndpointFor func(feeds.Feed) string
}

// CycleResult summarizes one collection cycle.
type CycleResult struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	FeedsOK     int           `json:"feedsOk"`
	FeedsFailed int           `json:"feedsFailed"`
	Trains      int           `json:"trains"`
	Stations    int           `json:"stations"`
	Err         error         `json:"-"`
}

// Collector fetches all feeds on an interval and publishes the merged result.
type Collector struct {
	fetcher    Fetcher
	feeds      []feeds.Feed
	normalizer *realtime.Normalizer
	writer     repository.Writer
	logger     *slog.Logger

	interval    time.Duration
	status      StatusRecorder
	endpointFor func(feeds.Feed) string

	last atomic.Pointer[CycleResult]
}

// New creates a Collector.
func New(fetcher Fetcher, fs []feeds.Feed, normalizer *realtime.Normalizer, writer repository.Writer, logger *slog.Logger, opts Options) *Collector {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.EndpointFor == nil {
		opts.EndpointFor = func(f feeds.Feed) string { return f.Path }
	}
	return &Collector{
		fetcher:     fetcher,
		feeds:       fs,
		normalizer:  normalizer,
		writer:      writer,
		logger:      logger,
		interval:    opts.Interval,
		status:      opts.Status,
		endpointFor: opts.EndpointFor,
	}
}

// Run runs a cycle immediately and then once per interval until ctx is
// cancelled. Failed cycles are logged and do not stop the loop.
func (c *Collector) Run(ctx context.Context) {
	c.logger.Info("collector started", "feeds", len(c.feeds), "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			break
		}
		res := c.RunOnce(ctx)
		if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
			c.logger.Error("collection cycle failed", "cycle", res.ID, "error", res.Err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
	}
	c.logger.Info("collector stopped")
}

// RunOnce executes a single cycle. It never panics.
func (c *Collector) RunOnce(ctx context.Context) (res CycleResult) {
	res = CycleResult{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := c.logger.With("cycle", res.ID)

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("cycle panicked: %v", r)
		}
		res.Duration = time.Since(res.StartedAt)
		if !errors.Is(res.Err, context.Canceled) {
			c.last.Store(&res)
		}
	}()

	res.Err = c.cycle(ctx, logger, &res)
	if res.Err == nil {
		logger.Info("cycle complete",
			"feeds_ok", res.FeedsOK,
			"feeds_failed", res.FeedsFailed,
			"trains", res.Trains,
			"stations", res.Stations,
		)
	}
	return res
}

// Last returns the most recent completed cycle, or nil before the first.
func (c *Collector) Last() *CycleResult {
	return c.last.Load()
}

func (c *Collector) cycle(ctx context.Context, logger *slog.Logger, res *CycleResult) error {
	logger.Info("cycle started", "feeds", len(c.feeds))

	// in-flight fetches are allowed to finish; results are dropped on cancel
	results := c.fetcher.FetchAll(context.WithoutCancel(ctx), c.feeds)
	if err := ctx.Err(); err != nil {
		logger.Info("cycle cancelled, discarding results")
		return err
	}

	b := realtime.NewBuilder()
	for _, r := range results {
		if !r.OK() {
			res.FeedsFailed++
			continue
		}
		res.FeedsOK++
		b.Add(c.normalizer.NormalizeFeed(r.Feed.ID, r.Message))
	}
	snap := b.Build(time.Now())
	res.Trains = snap.TotalTrains
	res.Stations = snap.TotalStations

	c.recordStatus(ctx, logger, results)

	if err := c.writer.StoreSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	if err := c.writer.StoreArrivalsByStation(ctx, snap.Trains); err != nil {
		return fmt.Errorf("store station arrivals: %w", err)
	}
	if err := c.writer.StoreStations(ctx, snap.Stations); err != nil {
		return fmt.Errorf("store stations: %w", err)
	}
	return nil
}

func (c *Collector) recordStatus(ctx context.Context, logger *slog.Logger, results []realtime.FeedResult) {
	if c.status == nil {
		return
	}
	for _, r := range results {
		s := storage.FeedStatus{
			FeedID:        r.Feed.ID,
			Endpoint:      c.endpointFor(r.Feed),
			LastAttemptAt: r.AttemptedAt,
		}
		if r.OK() {
			at := r.AttemptedAt
			s.LastSuccessAt = &at
			s.EntityCount = len(r.Message.GetEntity())
			s.NyctVersion = r.Version
		} else if r.Err != nil {
			s.LastError = r.Err.Error()
		}
		if err := c.status.RecordFeedStatus(ctx, s); err != nil {
			logger.Warn("record feed status failed", "feed", r.Feed.ID, "error", err)
		}
	}
}
