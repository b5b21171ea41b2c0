// Package redis provides Redis-backed adapters.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/devmob/onboard/internal/infra/config"
	"github.com/devmob/onboard/internal/port/outbound"
)

const rateLimitKeyPrefix = "onboard:ratelimit:"

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}
	return client, nil
}

// rateLimiter implements outbound.RateLimiterPort with a sliding window log
// kept in a sorted set per key.
type rateLimiter struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter adapter.
func NewRateLimiter(client redis.UniversalClient) outbound.RateLimiterPort {
	return &rateLimiter{client: client, now: time.Now}
}

func (r *rateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return r.AllowN(ctx, key, 1, limit, window)
}

func (r *rateLimiter) AllowN(ctx context.Context, key string, n int, limit int, window time.Duration) (bool, error) {
	fullKey := rateLimitKeyPrefix + key
	count, err := r.count(ctx, fullKey, window)
	if err != nil {
		return false, err
	}
	if count+int64(n) > int64(limit) {
		return false, nil
	}

	now := r.now().UnixNano()
	members := make([]redis.Z, n)
	for i := range members {
		members[i] = redis.Z{Score: float64(now), Member: uuid.NewString()}
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, fullKey, members...)
		pipe.PExpire(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record %s: %w", key, err)
	}
	return true, nil
}

func (r *rateLimiter) GetRemaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := r.count(ctx, rateLimitKeyPrefix+key, window)
	if err != nil {
		return 0, err
	}
	return max(limit-int(count), 0), nil
}

// count drops entries older than window and returns the rest.
func (r *rateLimiter) count(ctx context.Context, fullKey string, window time.Duration) (int64, error) {
	windowStart := r.now().Add(-window).UnixNano()

	var card *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, fullKey, "-inf", "("+strconv.FormatInt(windowStart, 10))
		card = pipe.ZCard(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", fullKey, err)
	}
	return card.Val(), nil
}

// Compile-time check
var _ outbound.RateLimiterPort = (*rateLimiter)(nil)
