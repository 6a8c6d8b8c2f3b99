package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
)

// Cache stores extracted text by URL. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, body string)
}

// Fetcher is anything that turns a URL into article text.
type Fetcher interface {
	Extract(ctx context.Context, url string) models.ArticleText
}

// Cached wraps a Fetcher so that each URL is downloaded at most once per
// cache TTL. Empty results are never cached.
type Cached struct {
	next  Fetcher
	cache Cache
}

// NewCached wraps next with cache. A nil cache disables caching.
func NewCached(next Fetcher, cache Cache) *Cached {
	return &Cached{next: next, cache: cache}
}

// Extract returns the cached text for url or fetches it.
func (c *Cached) Extract(ctx context.Context, url string) models.ArticleText {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, url); ok {
			return models.ArticleText{URL: url, Body: body}
		}
	}
	text := c.next.Extract(ctx, url)
	if c.cache != nil && !text.Empty() {
		c.cache.Set(ctx, url, text.Body)
	}
	return text
}

// --- In-memory ---

// MemoryCache keeps text in process memory.
type MemoryCache struct {
	entries *infra.Cache[string]
}

// NewMemoryCache creates an in-memory cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: infra.NewCache[string](ttl)}
}

func (m *MemoryCache) Get(_ context.Context, url string) (string, bool) {
	return m.entries.Get(url)
}

func (m *MemoryCache) Set(_ context.Context, url, body string) {
	m.entries.Set(url, body)
}

// --- Redis ---

// RedisKeyPrefix namespaces cached article text.
const RedisKeyPrefix = "sentinews:text:"

// RedisCache shares extracted text between processes through Redis. Redis
// errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: logging.Or(log)}
}

// Ping checks the Redis connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, url string) (string, bool) {
	body, err := r.client.Get(ctx, RedisKeyPrefix+url).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("extract: redis get failed", "url", url, "error", err)
		}
		return "", false
	}
	return body, true
}

func (r *RedisCache) Set(ctx context.Context, url, body string) {
	if err := r.client.Set(ctx, RedisKeyPrefix+url, body, r.ttl).Err(); err != nil {
		r.log.Warn("extract: redis set failed", "url", url, "error", err)
	}
}
