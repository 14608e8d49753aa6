package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache is a process-local TTL cache.
type Cache struct {
	items *ttlcache.Cache[string, []byte]
}

// New creates a cache whose entries expire after defaultTTL unless Set says otherwise.
// Reads do not extend an entry's lifetime.
func New(defaultTTL time.Duration, capacity uint64) *Cache {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithTTL[string, []byte](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](capacity))
	}

	return &Cache{items: ttlcache.New(opts...)}
}

// Start runs the expiration loop until Stop is called.
func (c *Cache) Start() {
	c.items.Start()
}

// Stop ends the expiration loop.
func (c *Cache) Stop() {
	c.items.Stop()
}

// Get implements cacheport.Cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}

	return item.Value(), true, nil
}

// Set implements cacheport.Cache. A zero ttl uses the default.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	c.items.Set(key, value, ttl)

	return nil
}

// Forget implements cacheport.Cache.
func (c *Cache) Forget(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.items.Delete(key)
	}

	return nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.items.Len()
}
