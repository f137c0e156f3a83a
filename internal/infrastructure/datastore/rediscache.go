package datastore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"parceldesk/internal/shared/logger"
)

// RedisCache is a ResultCache backed by redis, for deployments running more
// than one dashboard instance. Instead of scanning and deleting keys,
// InvalidateAll bumps a namespace version; stale entries become unreachable
// and expire via TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logger.Interface

	hits          int64
	misses        int64
	invalidations int64
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, log logger.Interface) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log.Named("redis-cache"),
	}
}

func (c *RedisCache) versionKey() string {
	return c.prefix + "version"
}

func (c *RedisCache) entryKey(ctx context.Context, key string) (string, error) {
	version, err := c.client.Get(ctx, c.versionKey()).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("%sv%d:%s", c.prefix, version, key), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	entryKey, err := c.entryKey(ctx, key)
	if err != nil {
		c.log.Warnw("cache lookup failed", "error", err)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	value, err := c.client.Get(ctx, entryKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("cache lookup failed", "error", err)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	entryKey, err := c.entryKey(ctx, key)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey, value, c.ttl).Err(); err != nil {
		c.log.Warnw("cache store failed", "error", err)
	}
}

func (c *RedisCache) InvalidateAll(ctx context.Context) {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		c.log.Warnw("cache invalidation failed", "error", err)
		return
	}
	atomic.AddInt64(&c.invalidations, 1)
}

func (c *RedisCache) Stats(ctx context.Context) CacheStats {
	var entries int64
	if n, err := c.client.DBSize(ctx).Result(); err == nil {
		entries = n
	}
	return CacheStats{
		Hits:          atomic.LoadInt64(&c.hits),
		Misses:        atomic.LoadInt64(&c.misses),
		Entries:       entries,
		Invalidations: atomic.LoadInt64(&c.invalidations),
	}
}
