// Package cache memoizes loaded data sets per source identity for the
// lifetime of one command invocation.
package cache

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache maps source identities to loaded values. Concurrent misses for the
// same key share one load; failed loads are not stored.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts lookups.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: map[string]V{}}
}

// Get returns the value for key, calling load on a miss.
func (c *Cache[V]) Get(key string, load func() (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		v, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}
		c.misses.Add(1)
		v, err := load()
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Invalidate drops key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidatePath drops every key whose identity names the file at abs.
// It returns the number of entries removed.
func (c *Cache[V]) InvalidatePath(abs string) int {
	prefix := "path:" + abs + "@"
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			c.group.Forget(k)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	for k := range c.entries {
		c.group.Forget(k)
	}
	c.entries = map[string]V{}
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns lookup counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.Len()}
}
