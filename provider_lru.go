package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultLRUCacheSize is the default size for the LRU provider.
	DefaultLRUCacheSize = 10000
	// DefaultLRUCacheTTL is the default time-to-live for items in the LRU provider.
	DefaultLRUCacheTTL = 1 * time.Hour
)

// LRUProvider keeps resolved entries in process memory. One instance can be
// shared by several resolvers, e.g. one resolver per view and one provider per process.
type LRUProvider[ID comparable, V any] struct {
	lru *expirable.LRU[string, *Entry[V]]
}

// NewLRUProvider creates an LRU provider holding at most size entries for ttl.
// Non-positive values fall back to DefaultLRUCacheSize and DefaultLRUCacheTTL.
func NewLRUProvider[ID comparable, V any](size int, ttl time.Duration) *LRUProvider[ID, V] {
	if size <= 0 {
		size = DefaultLRUCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultLRUCacheTTL
	}

	return &LRUProvider[ID, V]{
		lru: expirable.NewLRU[string, *Entry[V]](size, nil, ttl),
	}
}

func (c *LRUProvider[ID, V]) MGet(_ context.Context, keys []*Key[ID], requiredModelVersion uint16) (map[ID]*Entry[V], []*Key[ID], error) {
	found := make(map[ID]*Entry[V], len(keys))
	var missing []*Key[ID]

	for _, k := range keys {
		item, ok := c.lru.Get(k.Key)
		if !ok || !current(item, requiredModelVersion) {
			missing = append(missing, k)
			continue
		}

		found[k.OriginalValue] = item
	}

	return found, missing, nil
}

// MSet stores entries. The per-call ttl is ignored, expiry is fixed at construction.
func (c *LRUProvider[ID, V]) MSet(_ context.Context, values map[string]*Entry[V], _ time.Duration) error {
	for k, v := range values {
		if v == nil {
			continue
		}
		c.lru.Add(k, v)
	}

	return nil
}

func (c *LRUProvider[ID, V]) Len() int {
	return c.lru.Len()
}

func (c *LRUProvider[ID, V]) Purge() {
	c.lru.Purge()
}
