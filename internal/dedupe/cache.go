// ABOUTME: Seen-set for Telegram update IDs with TTL and a size cap
// ABOUTME: Protects against double-processing when the poll offset resets

package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers recently processed keys. Entries expire after the TTL,
// and the oldest entries are evicted once maxSize is reached.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	order   []entry // insertion order, oldest first; may hold stale slots
	ttl     time.Duration
	maxSize int
}

// New creates a cache. Expired entries are swept lazily on insert, so no
// background goroutine is needed.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		seen:    make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Seen atomically checks whether key was already processed and marks it
// otherwise. Returns true for duplicates.
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if ts, ok := c.seen[key]; ok && now.Sub(ts) < c.ttl {
		return true
	}

	c.sweep(now)
	for len(c.seen) >= c.maxSize {
		if !c.evictOldest() {
			break
		}
	}

	c.seen[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	return false
}

// sweep drops expired entries. Must be called with mu held.
func (c *Cache) sweep(now time.Time) {
	for len(c.order) > 0 {
		head := c.order[0]
		ts, ok := c.seen[head.key]
		if ok && ts.Equal(head.ts) && now.Sub(ts) < c.ttl {
			return
		}
		// Expired, or a stale slot for a re-marked key.
		c.order = c.order[1:]
		if ok && ts.Equal(head.ts) {
			delete(c.seen, head.key)
		}
	}
}

// evictOldest removes the oldest live entry, skipping stale slots.
// Must be called with mu held. Reports whether anything was evicted.
func (c *Cache) evictOldest() bool {
	for len(c.order) > 0 {
		head := c.order[0]
		c.order = c.order[1:]
		if ts, ok := c.seen[head.key]; ok && ts.Equal(head.ts) {
			delete(c.seen, head.key)
			return true
		}
	}
	return false
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
