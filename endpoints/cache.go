package endpoints

import (
	"sync"
	"time"

	"github.com/alternatefutures/package-cloud-sdk/failover"
)

type cacheEntry struct {
	endpoints []failover.Endpoint
	expiresAt time.Time
	found     bool // false marks a negative entry
}

// Cache is a thread-safe TTL cache of endpoint sets, including negative entries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	nowFn   func() time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached set. ok reports an unexpired entry; negative reports
// that the entry records a missing set.
func (c *Cache) Get(set string) (eps []failover.Endpoint, ok bool, negative bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[set]
	if !found || c.now().After(entry.expiresAt) {
		return nil, false, false
	}
	return clone(entry.endpoints), true, !entry.found
}

// Stale returns the last positive entry for set even if it has expired.
func (c *Cache) Stale(set string) ([]failover.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[set]
	if !found || !entry.found {
		return nil, false
	}
	return clone(entry.endpoints), true
}

// Set stores eps for set until ttl elapses.
func (c *Cache) Set(set string, eps []failover.Endpoint, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[set] = cacheEntry{
		endpoints: clone(eps),
		expiresAt: c.now().Add(ttl),
		found:     true,
	}
}

// SetMissing records that set does not exist until ttl elapses.
func (c *Cache) SetMissing(set string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[set] = cacheEntry{expiresAt: c.now().Add(ttl)}
}

// Invalidate removes set from the cache.
func (c *Cache) Invalidate(set string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, set)
}

func (c *Cache) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}
