package probe

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a probe result is considered fresh.
const DefaultCacheTTL = 10 * time.Second

// cacheEntry is owned exclusively by the cache; consumers only see copies.
type cacheEntry struct {
	latencyMs  *float64
	measuredAt time.Time
}

// Cache maps endpoints to their last probe result. Entries are refreshed in
// place and never deleted; the key space is one entry per distinct remote
// endpoint observed in a session.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[Endpoint]cacheEntry
}

// NewCache creates a cache with the given TTL. A non-positive TTL falls back
// to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[Endpoint]cacheEntry),
	}
}

// Get returns the cached latency for ep. ok is false when the endpoint was
// never probed. A nil latency with ok=true records a failed probe. stale is
// true when the measurement is older than the cache TTL.
func (c *Cache) Get(ep Endpoint, now time.Time) (latencyMs *float64, stale, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[ep]
	if !ok {
		return nil, false, false
	}
	if e.latencyMs != nil {
		v := *e.latencyMs
		latencyMs = &v
	}
	return latencyMs, now.Sub(e.measuredAt) > c.ttl, true
}

// Put records a probe result, overwriting any previous entry. A nil latency
// caches a failed probe so a dead endpoint is not re-probed until the entry
// goes stale.
func (c *Cache) Put(ep Endpoint, latencyMs *float64, now time.Time) {
	var stored *float64
	if latencyMs != nil {
		v := *latencyMs
		stored = &v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ep] = cacheEntry{latencyMs: stored, measuredAt: now}
}

// Len returns the number of distinct endpoints ever probed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
