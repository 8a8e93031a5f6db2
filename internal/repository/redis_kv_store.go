package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xcloud/console-client/internal/observability"
)

type RedisKeyValueStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisKeyValueStore(client redis.UniversalClient, prefix string) *RedisKeyValueStore {
	if prefix == "" {
		prefix = "xcloud:session"
	}
	return &RedisKeyValueStore{client: client, prefix: prefix}
}

func (s *RedisKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.dataKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		observability.RecordStorageOperation(ctx, "redis", "get", "not_found")
		return "", ErrKeyNotFound
	}
	if err != nil {
		observability.RecordStorageOperation(ctx, "redis", "get", "error")
		return "", err
	}
	observability.RecordStorageOperation(ctx, "redis", "get", "success")
	return v, nil
}

func (s *RedisKeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.dataKey(key), value, 0).Err(); err != nil {
		observability.RecordStorageOperation(ctx, "redis", "set", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "redis", "set", "success")
	return nil
}

func (s *RedisKeyValueStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.dataKey(k))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		observability.RecordStorageOperation(ctx, "redis", "delete", "error")
		return err
	}
	observability.RecordStorageOperation(ctx, "redis", "delete", "success")
	return nil
}

func (s *RedisKeyValueStore) dataKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
