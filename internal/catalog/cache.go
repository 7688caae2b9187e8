package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the redis client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache is a JSON read-through cache in front of the catalog client.
// Redis failures degrade to direct reads.
type Cache struct {
	redis  RedisClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache returns a cache storing entries under prefix for ttl.
func NewCache(rdb RedisClient, prefix string, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "checkout:catalog"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{redis: rdb, prefix: prefix, ttl: ttl, logger: logger.With(slog.String("component", "catalog-cache"))}
}

// Invalidate drops a cached entry.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.redis.Del(ctx, c.prefix+":"+key).Err()
}

// readThrough returns the cached value for key or loads and stores it.
// Load errors are never cached.
func readThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (*T, error)) (*T, error) {
	if c == nil {
		return load(ctx)
	}
	full := c.prefix + ":" + key

	raw, err := c.redis.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(raw, &v); jerr == nil {
			return &v, nil
		}
		c.logger.WarnContext(ctx, "dropping undecodable cache entry", slog.String("key", full))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "cache read failed", slog.String("key", full), slog.String("error", err.Error()))
	}

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(v); jerr == nil {
		if serr := c.redis.Set(ctx, full, data, c.ttl).Err(); serr != nil {
			c.logger.WarnContext(ctx, "cache write failed", slog.String("key", full), slog.String("error", serr.Error()))
		}
	}
	return v, nil
}
