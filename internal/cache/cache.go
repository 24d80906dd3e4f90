// Package cache provides the bounded LRU cache for search results.
//
// Entries are keyed by the full search request (query, category, brand,
// limit). There is no TTL and no invalidation on catalog change: the
// engine clears the cache explicitly when it rebuilds its models.
package cache

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/clearcart/relevance/internal/rank"
)

// DefaultCapacity is the default number of cached searches.
const DefaultCapacity = 100

// Key identifies one search request.
type Key struct {
	Query    string
	Category string
	Brand    string
	Limit    int
}

// String renders the composite key; used for logging and debugging.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.Query, k.Category, k.Brand, k.Limit)
}

type entry struct {
	key     Key
	results []rank.Scored
}

// Cache is a fixed-capacity LRU of search result lists. Safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	entries  map[Key]*list.Element
}

// New creates a cache; capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[Key]*list.Element, capacity),
	}
}

// Get returns the cached results for key and promotes the entry to most
// recently used.
func (c *Cache) Get(key Key) ([]rank.Scored, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).results, true
}

// Set stores results under key. At capacity, the single least-recently-used
// entry is evicted first.
func (c *Cache) Set(key Key, results []rank.Scored) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).results = results
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, results: results})
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry. Called on engine re-initialization so a rebuilt
// model set never serves stale rankings.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[Key]*list.Element, c.capacity)
}
