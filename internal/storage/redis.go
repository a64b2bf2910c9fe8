package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis backs the store with a Redis server.  Unlike the file backend
// this gives every viewer on every machine the same hold map, which
// tightens the client-side locking considerably in kiosk deployments.
// Values are plain strings with no TTL; expiry stays the hold store's
// business so the sweep semantics match the other backends.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client.  The caller owns the client's
// lifecycle.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
