package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines typed cache operations.
type Service[V any] interface {
	Set(ctx context.Context, key string, value V, expiration time.Duration) error
	Get(ctx context.Context, key string) (V, error)
	Delete(ctx context.Context, keys ...string) error
	Len() int
}

// GetOrCompute returns the cached value for key, computing and storing it on miss.
// A failed compute is not cached.
func GetOrCompute[V any](ctx context.Context, c Service[V], key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, nil
}
