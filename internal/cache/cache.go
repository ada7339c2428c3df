package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory TTL cache with request collapsing (singleflight).
// It backs both offer search results and currency pair rates.
type Cache[V any] struct {
	mu       sync.RWMutex
	entries  map[string]*entry[V]
	ttl      time.Duration
	inflight map[string]*inflightRequest[V]
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type inflightRequest[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// New creates a Cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries:  make(map[string]*entry[V]),
		ttl:      ttl,
		inflight: make(map[string]*inflightRequest[V]),
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

// Close stops the background cleanup goroutine. Safe to call twice.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.done) })
}

// Key joins key parts with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// GetOrFetch returns the cached value for key or runs fetch.
// Concurrent callers for the same key share one fetch. Errors are not cached.
// The boolean reports a cache hit.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch func() (V, error)) (V, bool, error) {
	var zero V

	c.mu.Lock()

	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, true, nil
	}

	if inflight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.value, false, inflight.err
		case <-ctx.Done():
			return zero, false, context.Cause(ctx)
		}
	}

	inflight := &inflightRequest[V]{done: make(chan struct{})}
	c.inflight[key] = inflight
	c.mu.Unlock()

	value, err := fetch()

	c.mu.Lock()
	inflight.value = value
	inflight.err = err
	if err == nil {
		c.entries[key] = &entry[V]{
			value:     value,
			expiresAt: c.now().Add(c.ttl),
		}
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	close(inflight.done)

	return value, false, err
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate removes a key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.mu.Unlock()
}

func (c *Cache[V]) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}
