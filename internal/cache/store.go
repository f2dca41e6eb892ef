// Package cache is the key-value store that decouples ingestion from reads:
// string keys, string values, per-key expiration.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a string key-value store with per-key TTL.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set overwrites key. A ttl <= 0 stores the value without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
