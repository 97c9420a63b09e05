// Package cache provides a sharded in-memory cache with per-entry expiry.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// TTLCache maps string keys to values that expire ttl after being set.
// Expired entries are invisible to Get and removed by Cleanup.
type TTLCache[V any] struct {
	shards [numShards]*shard[V]
	ttl    time.Duration
	now    func() time.Time
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// Option customises a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewTTLCache creates a cache. ttl <= 0 means entries never expire.
func NewTTLCache[V any](ttl time.Duration, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	c := &TTLCache[V]{ttl: ttl, now: o.now}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard[V]{items: make(map[string]entry[V])}
	}
	return c
}

func (c *TTLCache[V]) getShard(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }

// Set stores value under key, resetting its expiry.
func (c *TTLCache[V]) Set(key string, value V) {
	now := c.now()
	e := entry[V]{value: value, storedAt: now}
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
	s := c.getShard(key)
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
}

// Get returns the live value for key.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	v, _, ok := c.GetWithAge(key)
	return v, ok
}

// GetWithAge also returns how long ago the value was stored.
func (c *TTLCache[V]) GetWithAge(key string) (V, time.Duration, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	now := c.now()
	if !ok || c.expired(e, now) {
		var zero V
		return zero, 0, false
	}
	return e.value, now.Sub(e.storedAt), true
}

// Invalidate drops key.
func (c *TTLCache[V]) Invalidate(key string) {
	s := c.getShard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *TTLCache[V]) InvalidateAll() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.items = make(map[string]entry[V])
		s.mu.Unlock()
	}
}

// Len counts stored entries, including expired ones not yet cleaned up.
func (c *TTLCache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *TTLCache[V]) Cleanup() int {
	removed := 0
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if c.expired(e, now) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Snapshot returns every live entry (for debugging/admin).
func (c *TTLCache[V]) Snapshot() map[string]V {
	out := make(map[string]V)
	now := c.now()
	for _, s := range c.shards {
		s.mu.RLock()
		for k, e := range s.items {
			if !c.expired(e, now) {
				out[k] = e.value
			}
		}
		s.mu.RUnlock()
	}
	return out
}

func (c *TTLCache[V]) expired(e entry[V], now time.Time) bool {
	return c.ttl > 0 && !now.Before(e.expiresAt)
}
