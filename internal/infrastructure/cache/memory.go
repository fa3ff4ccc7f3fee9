package cache

import (
	"context"
	"sync"
	"time"

	"github.com/anipet/imagefinder/internal/domain"
)

// cacheItem represents a single payload in the cache with expiration
type cacheItem struct {
	Value      []byte
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory payload cache with TTL support
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache that sweeps expired payloads
// every cleanupInterval. Call Close to stop the sweeper.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		stop: make(chan struct{}),
	}
	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a copy of a payload from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || time.Now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	return append([]byte(nil), item.Value...), nil
}

// Set stores a copy of value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Copy so later writes to the caller's buffer never reach the cache
	c.data[key] = cacheItem{
		Value:      append([]byte(nil), value...),
		Expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a payload from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	return time.Now().Before(item.Expiration), nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, item := range c.data {
				if now.After(item.Expiration) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
