package geo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cache keeps lookup results between requests. Implementations swallow their
// own failures; a miss only costs a remote call.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, list []string, ttl time.Duration)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]string, bool)         { return nil, false }
func (nopCache) Set(context.Context, string, []string, time.Duration) {}

// RedisCache is a Cache stored in redis as JSON arrays
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache parses a redis:// URL and returns a cache using it
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Ping checks the connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Get implements Cache
func (r *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.S().Warnw("geo cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false
	}
	return list, true
}

// Set implements Cache
func (r *RedisCache) Set(ctx context.Context, key string, list []string, ttl time.Duration) {
	raw, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		zap.S().Warnw("geo cache write failed", "key", key, "error", err)
	}
}
