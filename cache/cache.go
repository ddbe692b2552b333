// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe generic cache using sync.Map with cleanup bound to a context

package cache

import (
	"context"
	"sync"
	"time"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = time.Minute

type entry[V any] struct {
	data      V
	expiresAt time.Time
}

// Cache maps string keys to values that expire ttl after their last write or touch.
type Cache[V any] struct {
	store sync.Map
	ttl   time.Duration
	mu    sync.Mutex // serializes GetOrCreate so a key is built once
}

// New creates a cache whose background sweeper stops when ctx is done.
func New[V any](ctx context.Context, ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		ttl: ttl,
	}
	go c.startCleanup(ctx, cleanupInterval)
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	val, ok := c.store.Load(key)
	if !ok {
		return zero, false
	}

	e := val.(entry[V])
	if time.Now().After(e.expiresAt) {
		c.store.Delete(key)
		return zero, false
	}

	return e.data, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.store.Store(key, entry[V]{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	})
}

// GetOrCreate returns the live value for key, building it with create when absent
// or expired. Either way the entry's expiry is pushed out by the cache TTL.
func (c *Cache[V]) GetOrCreate(key string, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.Get(key)
	if !ok {
		value = create()
	}
	c.Set(key, value)
	return value
}

func (c *Cache[V]) Clear(key string) {
	c.store.Delete(key)
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	n := 0
	c.store.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Cache[V]) sweep(now time.Time) {
	c.store.Range(func(key, val any) bool {
		if now.After(val.(entry[V]).expiresAt) {
			c.store.Delete(key)
		}
		return true
	})
}

func (c *Cache[V]) startCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}
