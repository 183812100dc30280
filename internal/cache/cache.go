package cache

import (
	"sync"
	"time"
)

// Cache is a bounded in-process map whose entries expire after a fixed TTL.
// When full, expired entries are dropped first, then the entry closest to
// expiry.
type Cache[V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	m          map[string]entry[V]
}

type entry[V any] struct {
	val V
	exp time.Time
}

func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}

	return &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		m:          make(map[string]entry[V]),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.m[key]
	if !ok {
		return zero, false
	}

	if c.now().After(e.exp) {
		delete(c.m, key)
		return zero, false
	}

	return e.val, true
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.maxEntries {
		c.evict(now)
	}
	c.m[key] = entry[V]{val: val, exp: now.Add(c.ttl)}
}

// evict must be called with mu held.
func (c *Cache[V]) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time

	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
			continue
		}
		if oldestKey == "" || e.exp.Before(oldest) {
			oldestKey, oldest = k, e.exp
		}
	}

	if len(c.m) >= c.maxEntries && oldestKey != "" {
		delete(c.m, oldestKey)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.m = make(map[string]entry[V])
	c.mu.Unlock()
}
