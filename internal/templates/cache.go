package templates

import (
	"sync"
	"time"
)

// Cache is an explicitly owned, TTL-bounded view over a catalog Loader. It
// replaces the module-level singleton the original system kept: ownership is
// explicit, expiry is defined, and Invalidate forces a reload on the next
// read.
type Cache struct {
	mu       sync.RWMutex
	loader   Loader
	ttl      time.Duration
	items    []Item
	byID     map[string]Item
	loadedAt time.Time
}

// DefaultTTL bounds catalog staleness when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// NewCache creates a cache over the given loader. A zero or negative ttl
// falls back to DefaultTTL.
func NewCache(loader Loader, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{loader: loader, ttl: ttl}
}

// Items returns the cached catalog, reloading it when the TTL has lapsed or
// the cache was invalidated.
func (c *Cache) Items() ([]Item, error) {
	c.mu.RLock()
	if c.fresh() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have reloaded while we waited for the lock.
	if c.fresh() {
		return c.items, nil
	}
	items, err := c.loader()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	c.items = items
	c.byID = byID
	c.loadedAt = time.Now()
	return items, nil
}

// Lookup returns the catalog item with the given id, if any.
func (c *Cache) Lookup(id string) (Item, bool, error) {
	if _, err := c.Items(); err != nil {
		return Item{}, false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.byID[id]
	return it, ok, nil
}

// Invalidate drops the cached catalog; the next read reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}

// fresh must be called with at least a read lock held.
func (c *Cache) fresh() bool {
	return !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
}
