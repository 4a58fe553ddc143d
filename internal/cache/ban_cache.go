package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const banKeyPrefix = "ban:"

// RedisBanCache remembers each user's ban flag for a bounded time so request
// middleware can skip the database.
type RedisBanCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisBanCache(rdb *redis.Client, ttl time.Duration) *RedisBanCache {
	return &RedisBanCache{rdb: rdb, ttl: ttl}
}

// Get returns found=false on a cache miss.
func (c *RedisBanCache) Get(ctx context.Context, userID string) (banned bool, found bool, err error) {
	val, err := c.rdb.Get(ctx, banKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

func (c *RedisBanCache) Set(ctx context.Context, userID string, banned bool) error {
	val := "0"
	if banned {
		val = "1"
	}
	return c.rdb.Set(ctx, banKeyPrefix+userID, val, c.ttl).Err()
}

// Noop never hits, so every lookup goes to the database.
type Noop struct{}

func (Noop) Get(context.Context, string) (bool, bool, error) { return false, false, nil }
func (Noop) Set(context.Context, string, bool) error         { return nil }
