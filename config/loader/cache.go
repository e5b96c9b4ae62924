package loader

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/dshills/stratum/config/value"
)

// cacheEntry is a parsed file together with the file state it was parsed
// from.
type cacheEntry struct {
	value   value.Value
	format  Format
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// fresh reports whether the entry still describes a file with the given
// modification time and size. A zero modification time is never trusted.
func (e cacheEntry) fresh(modTime time.Time, size int64) bool {
	return !modTime.IsZero() && e.modTime.Equal(modTime) && e.size == size
}

// Cache holds parsed files keyed by canonical path. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// processCache backs the default Detector for the life of the process.
var processCache = NewCache()

// ClearCache empties the process-wide file cache.
func ClearCache() {
	processCache.Clear()
}

func (c *Cache) lookup(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) store(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Invalidate drops the entry for a canonical path.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
