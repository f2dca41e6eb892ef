// Package config loads subwayfeed settings from SUBWAYFEED_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration from environment variables.
type Config struct {
	Port int `validate:"min=1,max=65535"`

	BaseURL          string        `validate:"required,url"`
	APIKey           string        // optional x-api-key header
	UserAgent        string        `validate:"required"`
	Interval         time.Duration `validate:"min=1s"`
	FetchTimeout     time.Duration `validate:"gt=0"`
	FetchConcurrency int           `validate:"min=0"` // 0 = one per feed

	SnapshotTTL        time.Duration `validate:"gt=0"`
	StationArrivalsTTL time.Duration `validate:"gt=0"`
	StationsTTL        time.Duration `validate:"gt=0"`
	KeyPrefix          string        `validate:"required"`

	RedisAddr     string // empty = in-process cache
	RedisPassword string
	RedisDB       int `validate:"min=0"`

	FeedsFile    string // empty = built-in registry
	StationsFile string // empty = built-in directory

	DBDriver string `validate:"omitempty,oneof=sqlite3 postgres"` // empty = no status storage
	DBDSN    string `validate:"required_with=DBDriver"`

	CORSOrigins []string
	LogLevel    string `validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:               envInt("SUBWAYFEED_PORT", 8080),
		BaseURL:            envStr("SUBWAYFEED_BASE_URL", "https://api-endpoint.mta.info/"),
		APIKey:             envStr("SUBWAYFEED_API_KEY", ""),
		UserAgent:          envStr("SUBWAYFEED_USER_AGENT", "subwayfeed/1.0"),
		Interval:           envDuration("SUBWAYFEED_INTERVAL", 30*time.Second),
		FetchTimeout:       envDuration("SUBWAYFEED_FETCH_TIMEOUT", 15*time.Second),
		FetchConcurrency:   envInt("SUBWAYFEED_FETCH_CONCURRENCY", 0),
		SnapshotTTL:        envDuration("SUBWAYFEED_SNAPSHOT_TTL", 2*time.Minute),
		StationArrivalsTTL: envDuration("SUBWAYFEED_STATION_ARRIVALS_TTL", 2*time.Minute),
		StationsTTL:        envDuration("SUBWAYFEED_STATIONS_TTL", time.Hour),
		KeyPrefix:          envStr("SUBWAYFEED_KEY_PREFIX", "mta"),
		RedisAddr:          envStr("SUBWAYFEED_REDIS_ADDR", ""),
		RedisPassword:      envStr("SUBWAYFEED_REDIS_PASSWORD", ""),
		RedisDB:            envInt("SUBWAYFEED_REDIS_DB", 0),
		FeedsFile:          envStr("SUBWAYFEED_FEEDS_FILE", ""),
		StationsFile:       envStr("SUBWAYFEED_STATIONS_FILE", ""),
		// set-but-empty disables status storage
		DBDriver:    envSet("SUBWAYFEED_DB_DRIVER", "sqlite3"),
		DBDSN:       envStr("SUBWAYFEED_DB_DSN", "./subwayfeed.db"),
		CORSOrigins: envList("SUBWAYFEED_CORS_ORIGINS", []string{"http://localhost:4200"}),
		LogLevel:    strings.ToLower(envStr("SUBWAYFEED_LOG_LEVEL", "info")),
	}
}

var validate = validator.New()

// Validate normalizes LogLevel and checks field constraints.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envSet(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
