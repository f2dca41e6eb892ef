package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"subwayfeed/internal/cache"
	"subwayfeed/internal/collector"
	"subwayfeed/internal/config"
	"subwayfeed/internal/feeds"
	"subwayfeed/internal/realtime"
	"subwayfeed/internal/repository"
	"subwayfeed/internal/stations"
	"subwayfeed/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:          "subwayfeed",
	Short:        "NYC Subway realtime feed collector",
	Long:         "Collects the MTA GTFS-realtime subway feeds, normalizes them and serves the cached views",
	SilenceUsage: true,
}

var cfg = config.Load()

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "GTFS-realtime base URL")
	f.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key sent as x-api-key")
	f.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Per-feed HTTP timeout")
	f.IntVar(&cfg.FetchConcurrency, "fetch-concurrency", cfg.FetchConcurrency, "Concurrent feed fetches (0 = one per feed)")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address (empty = in-process cache)")
	f.StringVar(&cfg.KeyPrefix, "key-prefix", cfg.KeyPrefix, "Cache key prefix")
	f.StringVar(&cfg.FeedsFile, "feeds-file", cfg.FeedsFile, "Feed registry YAML (empty = built-in)")
	f.StringVar(&cfg.StationsFile, "stations-file", cfg.StationsFile, "Station names: YAML, stops.txt, GTFS zip path or URL (empty = built-in)")
	f.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Feed status database driver: sqlite3, postgres or empty")
	f.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "Feed status database DSN")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, collectCmd, snapshotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
}

// app holds the components shared by every command.
type app struct {
	store     cache.Store
	repo      *repository.Repository
	db        *storage.DB // nil when status storage is disabled
	collector *collector.Collector
	closers   []io.Closer
}

func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := feeds.Load(cfg.FeedsFile)
	if err != nil {
		return nil, fmt.Errorf("loading feeds: %w", err)
	}
	directory, err := stations.NewDownloader(&http.Client{Timeout: 2 * time.Minute}, logger).Open(ctx, cfg.StationsFile)
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}
	logger.Info("reference data loaded", "feeds", registry.Len(), "stations", directory.Len())

	a := &app{}

	if cfg.RedisAddr != "" {
		r := cache.NewRedis(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.store = r
		a.closers = append(a.closers, r)
		logger.Info("using redis cache", "addr", cfg.RedisAddr)
	} else {
		m := cache.NewMemory(time.Minute)
		a.store = m
		a.closers = append(a.closers, m)
		logger.Info("using in-process cache")
	}

	a.repo = repository.New(a.store, cfg.KeyPrefix, repository.TTLs{
		Snapshot:        cfg.SnapshotTTL,
		StationArrivals: cfg.StationArrivalsTTL,
		Stations:        cfg.StationsTTL,
	})

	opts := collector.Options{Interval: cfg.Interval}
	if cfg.DBDriver != "" {
		db, err := storage.Open(cfg.DBDriver, cfg.DBDSN, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db)
		opts.Status = db
	}

	client := realtime.NewClient(realtime.ClientOptions{
		BaseURL:     cfg.BaseURL,
		UserAgent:   cfg.UserAgent,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.FetchTimeout,
		Concurrency: cfg.FetchConcurrency,
	}, logger)
	opts.EndpointFor = client.URL

	a.collector = collector.New(client, registry.Feeds(), realtime.NewNormalizer(directory), a.repo, logger, opts)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}
