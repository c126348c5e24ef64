package worker

import (
	"context"
	"fmt"
	"sync"
)

// Entry is one cached response.
type Entry struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
	Version     string
}

// Cache is the versioned offline response cache. Entries tagged with an older
// version survive a deploy only until the next activation purges them.
type Cache struct {
	mu      sync.RWMutex
	version string
	entries map[string]Entry
}

// NewCache creates a cache tagged with version.
func NewCache(version string) *Cache {
	if version == "" {
		version = "v1"
	}
	return &Cache{version: version, entries: make(map[string]Entry)}
}

// Version returns the current cache version tag.
func (c *Cache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Precache fetches each asset and stores it under the current version.
func (c *Cache) Precache(ctx context.Context, f Fetcher, assets []string) error {
	for _, asset := range assets {
		resp, err := f.Fetch(ctx, asset)
		if err != nil {
			return fmt.Errorf("precache %s: %w", asset, err)
		}
		if resp.Status != 200 {
			return fmt.Errorf("precache %s: status %d", asset, resp.Status)
		}
		c.Put(asset, resp)
	}
	return nil
}

// Put stores a response under the current version tag.
func (c *Cache) Put(url string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = Entry{
		URL:         url,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		Version:     c.version,
	}
}

// Get returns the cached entry for url, if present.
func (c *Cache) Get(url string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[url]
	return e, ok
}

// PurgeStale removes every entry whose version tag differs from the current
// one. Called on activation so the cache cannot grow without bound across
// deployments.
func (c *Cache) PurgeStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, e := range c.entries {
		if e.Version != c.version {
			delete(c.entries, url)
		}
	}
}

// SetVersion switches the cache to a new version tag. Existing entries keep
// their old tag until PurgeStale runs.
func (c *Cache) SetVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != "" {
		c.version = version
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
