package graphql

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxCacheEntries bounds the cache; the least recently used result is
// evicted first.
const maxCacheEntries = 256

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

type cacheEntry struct {
	op   string
	data json.RawMessage
}

// Cache stores query results keyed by operation name and variables.
type Cache struct {
	lru    *expirable.LRU[string, cacheEntry]
	ttl    time.Duration
	hits   int64
	misses int64
	mu     sync.Mutex
}

// NewCache returns a cache whose entries expire after ttl. A ttl of zero or
// less keeps entries until invalidated or evicted.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		lru: newLRU(ttl),
		ttl: ttl,
	}
}

func newLRU(ttl time.Duration) *expirable.LRU[string, cacheEntry] {
	if ttl < 0 {
		ttl = 0
	}
	return expirable.NewLRU[string, cacheEntry](maxCacheEntries, nil, ttl)
}

// cacheKey builds the key for op and vars. encoding/json sorts map keys, so
// equal variable sets produce equal keys.
func cacheKey(op string, vars map[string]any) string {
	data, _ := json.Marshal(vars)
	return op + ":" + string(data)
}

// Get returns the cached data for op and vars if present and fresh.
func (c *Cache) Get(op string, vars map[string]any) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(cacheKey(op, vars))
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.data, true
}

// Set stores data for op and vars.
func (c *Cache) Set(op string, vars map[string]any, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey(op, vars), cacheEntry{op: op, data: data})
}

// Invalidate drops every entry belonging to the named operations and returns
// how many entries were removed.
func (c *Cache) Invalidate(ops ...string) int {
	if len(ops) == 0 {
		return 0
	}

	names := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		names[op] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if _, match := names[entry.op]; match && c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// SetTTL changes the expiry. Entries cached under a different ttl are
// dropped.
func (c *Cache) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl == c.ttl {
		return
	}
	c.ttl = ttl
	c.lru = newLRU(ttl)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: c.lru.Len(), Hits: c.hits, Misses: c.misses}
}
