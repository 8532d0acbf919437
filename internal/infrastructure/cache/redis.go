package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	interfaces "school-registration/internal/interfaces/infrastructure"

	"github.com/go-redis/redis/v8"
)

const (
	viewPrefix        = "view:"
	idempotencyPrefix = "idem:"
)

var _ interfaces.ResponseCache = (*RedisCache)(nil)

// RedisCache keeps rendered GET responses and replayable POST responses.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{
		client: rdb,
	}
}

func (r *RedisCache) get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisCache) GetView(ctx context.Context, path string) (string, bool, error) {
	return r.get(ctx, viewPrefix+path)
}

func (r *RedisCache) SetView(ctx context.Context, path string, body string, ttl time.Duration) error {
	if err := r.client.Set(ctx, viewPrefix+path, body, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache view %s: %w", path, err)
	}
	return nil
}

// Revalidate drops the cached views of paths.
func (r *RedisCache) Revalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		keys = append(keys, viewPrefix+path)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revalidate views: %w", err)
	}
	return nil
}

func (r *RedisCache) GetIdempotent(ctx context.Context, key string) (string, bool, error) {
	return r.get(ctx, idempotencyPrefix+key)
}

// SetIdempotent stores the first response for key. A key that is already set
// keeps its original value.
func (r *RedisCache) SetIdempotent(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.SetNX(ctx, idempotencyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
