package netbox

import (
	"context"
	"sync"
	"time"

	"inventory-sync/core/clock"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	id    int
	built time.Time
}

// lookupCache memoizes resolved object ids with a TTL. Concurrent misses for
// the same key share one load.
type lookupCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	sf      singleflight.Group
	ttl     time.Duration
	clock   clock.Clock
}

func newLookupCache(ttl time.Duration, clk clock.Clock) *lookupCache {
	if clk == nil {
		clk = clock.Real()
	}
	return &lookupCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

func (c *lookupCache) fresh(key string) (int, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.ttl <= 0 || c.clock.Now().Sub(e.built) > c.ttl {
		return 0, false
	}
	return e.id, true
}

// GetOrLoad returns the cached id for key, or calls load once across callers.
func (c *lookupCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (int, error)) (int, error) {
	if id, ok := c.fresh(key); ok {
		return id, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if id, ok := c.fresh(key); ok {
			return id, nil
		}

		id, err := load(ctx)
		if err != nil {
			return 0, err
		}

		c.mu.Lock()
		c.entries[key] = cacheEntry{id: id, built: c.clock.Now()}
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Invalidate drops every cached entry.
func (c *lookupCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
