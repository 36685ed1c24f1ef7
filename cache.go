package sosi

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	featureType *FeatureType
	count       int
}

// MetadataCache holds the inferred feature type and record count per store
// identity. Concurrent first requests for the same key share one
// computation; failed computations are not stored. A computation that is
// still running when its key is forgotten returns its result to the callers
// waiting on it but does not store it.
//
// A MetadataCache is safe for concurrent use and may be shared by stores.
type MetadataCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	gens    map[string]uint64
	group   singleflight.Group
}

// NewMetadataCache creates an empty cache.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
	}
}

// GetOrCompute returns the cached metadata for key, calling compute at most
// once per key while no entry exists.
func (c *MetadataCache) GetOrCompute(key string, compute func() (*FeatureType, int, error)) (*FeatureType, int, error) {
	if entry, ok := c.lookup(key); ok {
		return entry.featureType, entry.count, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		entry, ok := c.entries[key]
		gen := c.gens[key]
		c.mu.RUnlock()
		// A caller that lost the race with a finished flight lands here.
		if ok {
			return entry, nil
		}

		ft, count, err := compute()
		if err != nil {
			return nil, err
		}

		entry = cacheEntry{featureType: ft, count: count}
		c.mu.Lock()
		if c.gens[key] == gen {
			c.entries[key] = entry
		}
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, 0, err
	}

	entry := v.(cacheEntry)
	return entry.featureType, entry.count, nil
}

// Forget drops the entry for key. Stores never call it; it exists for
// owners that replace a store whose file changed on disk.
func (c *MetadataCache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Len returns the number of cached entries.
func (c *MetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MetadataCache) lookup(key string) (cacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	return entry, ok
}
