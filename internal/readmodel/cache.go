// Package readmodel provides a collection-keyed cache for projection results.
// Consistency is by explicit invalidation, not TTL: the caller invalidates a
// collection after every committed mutation touching it, matching the
// transactional store's collection granularity.
package readmodel

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSize = 512

// Cache memoizes projection results under (collection, query) keys.
// Invalidate bumps a per-collection generation, which orphans every entry
// cached for that collection; orphans age out through the LRU.
type Cache[V any] struct {
	mu          sync.Mutex
	generations map[string]uint64
	entries     *lru.Cache[string, V]
}

// New constructs a cache bounded to size entries. Non-positive sizes fall
// back to a default.
func New[V any](size int) (*Cache[V], error) {
	if size <= 0 {
		size = defaultSize
	}
	entries, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{
		generations: make(map[string]uint64),
		entries:     entries,
	}, nil
}

func (c *Cache[V]) entryKey(collection, query string) string {
	return fmt.Sprintf("%s@%d:%s", collection, c.generations[collection], query)
}

// Get returns the cached value for the query within the collection's current
// generation.
func (c *Cache[V]) Get(collection, query string) (V, bool) {
	c.mu.Lock()
	key := c.entryKey(collection, query)
	c.mu.Unlock()
	return c.entries.Get(key)
}

// Put stores a value under the collection's current generation.
func (c *Cache[V]) Put(collection, query string, value V) {
	c.mu.Lock()
	key := c.entryKey(collection, query)
	c.mu.Unlock()
	c.entries.Add(key, value)
}

// Invalidate drops every cached entry for the collection.
func (c *Cache[V]) Invalidate(collection string) {
	c.mu.Lock()
	c.generations[collection]++
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	for collection := range c.generations {
		c.generations[collection]++
	}
	c.mu.Unlock()
	c.entries.Purge()
}

// Len reports the number of resident entries, including orphaned generations
// not yet evicted.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}
