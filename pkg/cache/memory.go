// Package cache provides fingerprint caches used by deduplication,
// an in-process one and a Redis-backed one shared between instances.
package cache

import (
	"context"
	"sync"
	"time"

	expirable "github.com/go-pkgz/expirable-cache/v3"
)

// MemoryOpts defines size and expiration settings for the in-process cache
type MemoryOpts struct {
	TTL             time.Duration // entry lifetime, 24h if not set
	MaxKeys         int           // least recently used entries are dropped above it, 100000 if not set
	CleanupInterval time.Duration // how often expired entries are purged, 1m if not set
}

// Memory is an in-process LRU cache with per-entry expiration and background purge of expired entries
type Memory struct {
	cache expirable.Cache[string, string]

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory makes a memory cache and starts the purge of expired entries, stopped by Close
func NewMemory(opts MemoryOpts) *Memory {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = 100_000
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	m := &Memory{
		cache: expirable.NewCache[string, string]().WithTTL(opts.TTL).WithMaxKeys(opts.MaxKeys).WithLRU(),
		done:  make(chan struct{}),
	}
	go m.purge(opts.CleanupInterval)
	return m
}

// Get returns the value for key, found is false for missing or expired entries
func (m *Memory) Get(_ context.Context, key string) (value string, found bool, err error) {
	value, found = m.cache.Get(key)
	return value, found, nil
}

// Set stores value for key with the cache-wide ttl
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value, 0)
	return nil
}

// Len returns number of stored entries
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Close stops the purge and drops all entries
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.cache.Purge()
	})
	return nil
}

func (m *Memory) purge(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cache.DeleteExpired()
		}
	}
}
