// Package infra provides shared infrastructure components used across
// the application: outbound HTTP, caching, and rate limiting.
package infra

import (
	"context"
	"sync"
	"time"
)

// --- In-memory TTL cache ---

// DefaultSweepThreshold is the entry count above which Set sweeps expired
// entries.
const DefaultSweepThreshold = 1024

type cacheItem[V any] struct {
	value   V
	expires time.Time
}

// Cache is a thread-safe in-memory cache with a fixed TTL. Expired entries
// are dropped when read and swept on write once the cache grows past the
// sweep threshold, so the cache never needs a background goroutine.
type Cache[V any] struct {
	mu      sync.Mutex
	items   map[string]cacheItem[V]
	ttl     time.Duration
	sweepAt int
	now     func() time.Time
}

// NewCache creates a new cache with the given TTL.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items:   make(map[string]cacheItem[V]),
		ttl:     ttl,
		sweepAt: DefaultSweepThreshold,
		now:     time.Now,
	}
}

// Get returns the value for key, or the zero value and false if it is
// missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(it.expires) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value under key for the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.items) >= c.sweepAt {
		for k, it := range c.items {
			if !now.Before(it.expires) {
				delete(c.items, k)
			}
		}
	}
	c.items[key] = cacheItem[V]{value: value, expires: now.Add(c.ttl)}
}

// Len returns the number of stored entries, including expired ones that
// have not been dropped yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// --- Rate limiter ---

// RateLimiter is a token bucket holding up to burst tokens that refill
// continuously at burst tokens per period.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	perToken time.Duration
	last     time.Time
}

// NewRateLimiter creates a limiter that allows maxTokens requests per
// refillRate, starting with a full bucket.
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return &RateLimiter{
		tokens:   float64(maxTokens),
		burst:    float64(maxTokens),
		perToken: refillRate / time.Duration(maxTokens),
		last:     time.Now(),
	}
}

// PerSecond returns a limiter allowing n requests per second, or nil when
// n <= 0. A nil *RateLimiter never blocks.
func PerSecond(n int) *RateLimiter {
	if n <= 0 {
		return nil
	}
	return NewRateLimiter(n, time.Second)
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// reserve takes a token and returns 0, or returns how long until one is
// available.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if rl.perToken > 0 {
		rl.tokens += float64(now.Sub(rl.last)) / float64(rl.perToken)
	} else {
		rl.tokens = rl.burst
	}
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.last = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration((1 - rl.tokens) * float64(rl.perToken))
}
