// Package cache provides an in-memory list cache for one kind of fetched
// entity. Loads replace the contents wholesale; local inserts append a
// server-confirmed record without a refetch. Overlapping loads are ordered
// by a monotonic token so a slow early response can never clobber a newer
// one.
package cache

import (
	"context"
	"sync"
)

// Fetch produces the replacement contents for a cache.
type Fetch[T any] func(ctx context.Context) ([]T, error)

// Cache holds fetched entities of one kind.
type Cache[T any] struct {
	id func(T) string

	mu      sync.Mutex
	items   []T
	seq     uint64
	loading bool
	errMsg  string
}

// New constructs a cache using the provided id extractor.
func New[T any](id func(T) string) *Cache[T] {
	if id == nil {
		panic("cache: id extractor must not be nil")
	}
	return &Cache[T]{id: id}
}

// begin issues a request token and flips the loading flag.
func (c *Cache[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.loading = true
	c.errMsg = ""
	return c.seq
}

// settle applies a load outcome. Outcomes whose token is no longer the most
// recent issued are discarded: a newer call supersedes them.
func (c *Cache[T]) settle(token uint64, items []T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.seq {
		return false
	}
	c.loading = false
	if err != nil {
		c.errMsg = err.Error()
		return true
	}
	c.items = items
	c.errMsg = ""
	return true
}

// Load replaces the cache contents with the fetch result. Used for global
// listings, owner-scoped listings, and searches alike: the distinction lives
// in the fetch closure, the replace semantics do not change. The returned
// error is nil when the outcome was discarded as stale.
func (c *Cache[T]) Load(ctx context.Context, fetch Fetch[T]) error {
	token := c.begin()
	items, err := fetch(ctx)
	if !c.settle(token, items, err) {
		return nil
	}
	return err
}

// LoadOne fetches a single entity and replaces the list with it, matching
// the single-entity detail view usage pattern.
func (c *Cache[T]) LoadOne(ctx context.Context, fetch func(ctx context.Context) (T, error)) error {
	return c.Load(ctx, func(ctx context.Context) ([]T, error) {
		item, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return []T{item}, nil
	})
}

// InsertLocal appends a server-confirmed entity without a refetch. The value
// must be the server's response payload so server-assigned fields are
// authoritative.
func (c *Cache[T]) InsertLocal(item T) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
}

// ReplaceLocal swaps the entry with a matching id for the provided value.
// It reports whether a match was found.
func (c *Cache[T]) ReplaceLocal(item T) bool {
	key := c.id(item)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.id(c.items[i]) == key {
			c.items[i] = item
			return true
		}
	}
	return false
}

// RemoveLocal deletes the entry with the given id, reporting whether it
// existed.
func (c *Cache[T]) RemoveLocal(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.id(c.items[i]) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the cached entity with the given id.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.id(c.items[i]) == id {
			return c.items[i], true
		}
	}
	var zero T
	return zero, false
}

// Snapshot returns a copy of the current contents.
func (c *Cache[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of cached entities.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Loading reports whether the most recently issued load is still in flight.
func (c *Cache[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the human-readable message from the most recent failed load,
// or the empty string.
func (c *Cache[T]) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}
