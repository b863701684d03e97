package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/clientscore/internal/model"
)

// MemoryCache implements in-memory TTL caching of client records
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a copy of a cached record
func (c *MemoryCache) Get(id int64) (*model.ClientRecord, bool) {
	val, found := c.cache.Get(CacheKey(id))
	if !found {
		return nil, false
	}
	record := val.(model.ClientRecord)
	return &record, true
}

// Set stores a copy of the record. A zero ttl uses the cache default.
func (c *MemoryCache) Set(record *model.ClientRecord, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(CacheKey(record.ID), *record, ttl)
}

// Delete removes a record from the cache
func (c *MemoryCache) Delete(id int64) {
	c.cache.Delete(CacheKey(id))
}

// Clear removes all records from the cache
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached records, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
