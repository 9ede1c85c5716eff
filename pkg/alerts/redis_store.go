package alerts

import (
	"context"
	"errors"
	"fmt"

	"polymerit/pkg/cache"
)

// RedisStore keeps each preference under its own key, scoped by namespace
type RedisStore struct {
	cache     *cache.RedisCache
	namespace string
}

// NewRedisStore creates a store; namespace separates users or devices
func NewRedisStore(c *cache.RedisCache, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{cache: c, namespace: namespace}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf(cache.KeyPreferences, s.namespace, key)
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	err := s.cache.Get(ctx, s.key(key), dest)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	return s.cache.Set(ctx, s.key(key), value, 0)
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, s.key(key))
}
