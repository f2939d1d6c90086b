package cache

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity bounds the number of live entries.
	DefaultCapacity = 100
	// DefaultTTL is how long an entry stays valid after insertion.
	DefaultTTL = 5 * time.Minute
)

type entry struct {
	value      string
	insertedAt time.Time
}

// Memory is a bounded, time-expiring in-memory ResponseCache. Capacity and
// TTL invariants are enforced here, not at call sites. Scoped to a single
// process; hit rates are best-effort only.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewMemory creates a cache with the given capacity and TTL. Non-positive
// values fall back to the defaults.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries:  make(map[string]entry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached value for key. Entries older than the TTL are
// treated as absent and evicted lazily.
func (c *Memory) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Put inserts value under key. When the cache is full, the single oldest
// entry by insertion time is evicted first.
func (c *Memory) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, insertedAt: c.now()}
}

// Clear drops all entries.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the current number of entries, expired or not.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Memory) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
