package services

import (
	"sync"
	"time"
)

// VersionCache holds remote content versions for a bounded time.
// Stale entries are ignored on read and overwritten on the next Set.
type VersionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]versionEntry
}

type versionEntry struct {
	version   string
	timestamp time.Time
}

// NewVersionCache creates a cache whose entries expire after ttl.
func NewVersionCache(ttl time.Duration) *VersionCache {
	return &VersionCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]versionEntry),
	}
}

// Get returns the cached version of table if it is still fresh.
func (c *VersionCache) Get(table string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[table]
	if !ok || c.now().Sub(entry.timestamp) >= c.ttl {
		return "", false
	}
	return entry.version, true
}

// Set records the current version of table.
func (c *VersionCache) Set(table, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[table] = versionEntry{version: version, timestamp: c.now()}
}

// Invalidate drops the cached version of table.
func (c *VersionCache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, table)
}
