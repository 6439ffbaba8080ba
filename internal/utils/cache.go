package utils

import (
	"sync"
	"time"
)

// CacheEntry represents a cached value with expiration
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry[V]) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Cache is an in-memory map with a sliding TTL: every GetOrCreate that finds
// an entry extends the entry's lifetime.
type Cache[V any] struct {
	data       map[string]*CacheEntry[V]
	mutex      sync.Mutex
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewCache creates a cache and starts its cleanup routine. Call Close to stop it.
func NewCache[V any](defaultTTL time.Duration) *Cache[V] {
	cache := &Cache[V]{
		data:       make(map[string]*CacheEntry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go cache.cleanupLoop(cleanupInterval(defaultTTL))

	return cache
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval <= 0 || interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}

// GetOrCreate returns the cached value for key, building and storing it with
// create when it is missing. The second result is true when create ran.
func (c *Cache[V]) GetOrCreate(key string, create func() V) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if entry, exists := c.data[key]; exists && !entry.IsExpired(now) {
		entry.ExpiresAt = now.Add(c.defaultTTL)
		return entry.Value, false
	}

	value := create()
	c.data[key] = &CacheEntry[V]{Value: value, ExpiresAt: now.Add(c.defaultTTL)}
	return value, true
}

// Delete removes a value from the cache
func (c *Cache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

// Size returns the number of items in the cache, expired ones included until
// the next cleanup.
func (c *Cache[V]) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.data)
}

// Close stops the cleanup routine.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if entry.IsExpired(now) {
			delete(c.data, key)
		}
	}
}
