package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store, used when no Redis address is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	stop    chan struct{}
	once    sync.Once
}

type entry struct {
	value     string
	expiresAt time.Time // zero = never
}

// NewMemory creates an empty store that sweeps expired keys every cleanupEvery.
func NewMemory(cleanupEvery time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.stop:
				return
			}
		}
	}()
	return m
}

// Get retrieves a value if it exists and hasn't expired.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(time.Now()) {
		return "", ErrMiss
	}
	return e.value, nil
}

// Set stores a value, replacing any previous one.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// Close stops the background sweeper.
func (m *Memory) Close() error {
	m.once.Do(func() {
		if m.stop != nil {
			close(m.stop)
		}
	})
	return nil
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
