package caching

import (
	"context"
	"errors"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	"github.com/redis/go-redis/v9"
)

type CachingService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCachingService struct {
	client redis.Cmdable
}

func NewRedisCachingService(client redis.Cmdable) *RedisCachingService {
	return &RedisCachingService{client: client}
}

func (c *RedisCachingService) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.ErrCacheMiss
	}
	return val, err
}

func (c *RedisCachingService) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCachingService) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCachingService) IsReady(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCachingService) Name() string {
	return "Cache[redis]"
}

// NullCachingService is used when no Redis address is configured; every
// lookup misses.
type NullCachingService struct{}

func NewNullCachingService() *NullCachingService {
	return &NullCachingService{}
}

func (NullCachingService) Get(context.Context, string) (string, error) {
	return "", apperror.ErrCacheMiss
}

func (NullCachingService) Set(context.Context, string, string, time.Duration) error { return nil }

func (NullCachingService) Delete(context.Context, string) error { return nil }
