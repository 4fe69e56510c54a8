package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON value cache with a fixed TTL. Used by the report
// endpoints; a miss or a redis error both read through to the database.
type Cache struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewCache creates a new Cache
func NewCache(client *Client, keyPrefix string, ttl time.Duration) *Cache {
	if keyPrefix == "" {
		keyPrefix = "cache:"
	}
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// GetJSON reads a cached value into dest. Returns false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A corrupt entry is treated as a miss.
		c.client.logger.WithContext(ctx).WithError(err).Warnf("Dropping corrupt cache entry: %s", key)
		_ = c.client.Del(ctx, c.keyPrefix+key)
		return false, nil
	}

	return true, nil
}

// SetJSON stores a value under the cache TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyPrefix+key, raw, c.ttl)
}
