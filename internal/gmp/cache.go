package gmp

import (
	"strings"
	gosync "sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/open-gsa/gsa/internal/metrics"
)

const (
	cacheKindGet = "get"
	cacheKindAll = "all"
)

type cacheEntry struct {
	mu    gosync.Mutex
	value any
	dirty bool
}

// Cache keeps recent reads per entity type. Mutations mark the entries of a
// type dirty; a dirty entry is served exactly once, flagged stale, and then
// evicted so the next read goes to the backend.
type Cache struct {
	items *gocache.Cache
}

// NewCache returns a cache whose entries expire after ttl. A ttl <= 0
// disables caching.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return nil
	}
	return &Cache{items: gocache.New(ttl, 2*ttl)}
}

func cacheKey(entityType, kind, key string) string {
	return entityType + "|" + kind + "|" + key
}

func (c *Cache) lookup(entityType, kind, key string) (any, Meta, bool) {
	if c == nil {
		return nil, Meta{}, false
	}
	k := cacheKey(entityType, kind, key)
	obj, found := c.items.Get(k)
	if !found {
		metrics.CacheReadsTotal.WithLabelValues(entityType, "miss").Inc()
		return nil, Meta{}, false
	}
	entry, ok := obj.(*cacheEntry)
	if !ok {
		c.items.Delete(k)
		return nil, Meta{}, false
	}

	entry.mu.Lock()
	value, dirty := entry.value, entry.dirty
	entry.mu.Unlock()

	if dirty {
		c.items.Delete(k)
		metrics.CacheReadsTotal.WithLabelValues(entityType, "dirty").Inc()
		return value, Meta{FromCache: true, Dirty: true}, true
	}
	metrics.CacheReadsTotal.WithLabelValues(entityType, "hit").Inc()
	return value, Meta{FromCache: true}, true
}

func (c *Cache) store(entityType, kind, key string, value any) {
	if c == nil {
		return
	}
	c.items.Set(cacheKey(entityType, kind, key), &cacheEntry{value: value}, gocache.DefaultExpiration)
}

// Invalidate marks every cached entry of entityType dirty.
func (c *Cache) Invalidate(entityType string) {
	if c == nil {
		return
	}
	prefix := entityType + "|"
	for key, item := range c.items.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, ok := item.Object.(*cacheEntry)
		if !ok {
			continue
		}
		entry.mu.Lock()
		entry.dirty = true
		entry.mu.Unlock()
	}
	metrics.CacheInvalidationsTotal.WithLabelValues(entityType).Inc()
}

// Flush drops every entry.
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.items.Flush()
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.items.ItemCount()
}
