// Package rediscache shares currency pair rates between service instances.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "rate:"

// Cache stores pair rates in Redis with a TTL. Redis failures never fail a
// lookup: the fetch runs and its result is returned uncached.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// New returns a Cache, or nil when client is nil.
func New(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// GetOrFetch returns the rate stored under key or runs fetch and stores it.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func() (decimal.Decimal, error)) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Result()
	switch {
	case err == nil:
		rate, parseErr := decimal.NewFromString(raw)
		if parseErr == nil {
			return rate, true, nil
		}
		c.logger.Warn("discarding malformed cached rate", "key", key, "value", raw)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("redis get failed", "key", key, "error", err)
	}

	rate, err := fetch()
	if err != nil {
		return decimal.Zero, false, err
	}

	if err := c.client.Set(ctx, keyPrefix+key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}

	return rate, false, nil
}

// Invalidate removes a key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
