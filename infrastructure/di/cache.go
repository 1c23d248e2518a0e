package di

import (
	"context"
	"sync"
	"time"

	"github.com/timmarsh1987/XMCVisualiser/pkg/observability"
)

// InMemoryCache is a TTL cache for derived results such as explorer pages
type InMemoryCache struct {
	name    string
	metrics observability.Recorder
	now     func() time.Time

	mu    sync.RWMutex
	items map[string]cacheItem

	stop     chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a cache and starts the expiry sweep. Call Stop to
// end the sweep.
func NewInMemoryCache(name string, metrics observability.Recorder) *InMemoryCache {
	if metrics == nil {
		metrics = observability.Nop{}
	}
	c := &InMemoryCache{
		name:    name,
		metrics: metrics,
		now:     time.Now,
		items:   make(map[string]cacheItem),
		stop:    make(chan struct{}),
	}
	go c.cleanupExpired(time.Minute)
	return c
}

// Get retrieves a live value
func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(item.expiresAt) {
		c.metrics.Increment(observability.MetricCacheMisses, c.name)
		return nil, false
	}
	c.metrics.Increment(observability.MetricCacheHits, c.name)
	return item.value, true
}

// Set stores a value for ttl. A non-positive ttl stores nothing.
func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a value
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all values
func (c *InMemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheItem)
}

// Len returns the number of stored entries, expired or not
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop ends the expiry sweep
func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *InMemoryCache) removeExpired() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
