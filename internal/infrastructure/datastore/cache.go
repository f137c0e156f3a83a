package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ResultCache holds serialized read results keyed by operation and
// arguments. Implementations must treat InvalidateAll as a full flush: every
// mutation drops the whole cache rather than tracking per-entity
// dependencies.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	InvalidateAll(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}

// CacheStats reports cache effectiveness for the admin panel.
type CacheStats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Entries       int64 `json:"entries"`
	Invalidations int64 `json:"invalidations"`
}

// CacheKey builds a deterministic key from an operation name and its
// arguments. Arguments are serialized to JSON so structurally equal filters
// produce the same key.
func CacheKey(op string, args ...any) string {
	if len(args) == 0 {
		return op
	}
	raw, err := json.Marshal(args)
	if err != nil {
		// unserializable args fall back to an uncacheable unique key
		return fmt.Sprintf("%s:%p", op, &args)
	}
	return op + ":" + string(raw)
}

type memoryCacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local ResultCache with per-entry TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration

	hits          int64
	misses        int64
	invalidations int64
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryCacheEntry)
	c.invalidations++
}

func (c *MemoryCache) Stats(_ context.Context) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Hits:          c.hits,
		Misses:        c.misses,
		Entries:       int64(len(c.entries)),
		Invalidations: c.invalidations,
	}
}
