package cache

import (
	"sync"
	"time"
)

// Cache is an in-process map whose entries expire after a per-entry TTL.
type Cache[V any] struct {
	mu  sync.RWMutex
	m   map[string]entry[V]
	now func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time
}

// New returns an empty cache. A nil clock means time.Now.
func New[V any](now func() time.Time) *Cache[V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		m:   make(map[string]entry[V]),
		now: now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}

	if !now.Before(e.exp) {
		c.mu.Lock()
		// re-check: a concurrent Put may have refreshed the entry
		if cur, ok := c.m[key]; ok && !now.Before(cur.exp) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	return e.val, true
}

// Put stores val for ttl, replacing any entry. Non-positive ttl is a no-op.
func (c *Cache[V]) Put(key string, val V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.m[key] = entry[V]{val: val, exp: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Add stores val only when key has no live entry and reports whether it did.
func (c *Cache[V]) Add(key string, val V, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.m[key]; ok && now.Before(cur.exp) {
		return false
	}
	c.m[key] = entry[V]{val: val, exp: now.Add(ttl)}
	return true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}
