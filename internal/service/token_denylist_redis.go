package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisTokenDenylist struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTokenDenylist(client redis.UniversalClient, prefix string) *RedisTokenDenylist {
	if prefix == "" {
		prefix = "token_denylist"
	}
	return &RedisTokenDenylist{client: client, prefix: prefix}
}

func (d *RedisTokenDenylist) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	if d.client == nil {
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.dataKey(tokenID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisTokenDenylist) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	if d.client == nil || tokenID == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.dataKey(tokenID), "1", ttl).Err()
}

func (d *RedisTokenDenylist) dataKey(tokenID string) string {
	return fmt.Sprintf("%s:jti:%s", d.prefix, tokenID)
}
