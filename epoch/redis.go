package epoch

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Getter is the part of a go-redis client the Redis source needs.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis reads the epoch from a key. A missing key is the empty epoch.
type Redis struct {
	client Getter
	key    string
}

func NewRedis(client Getter, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (r *Redis) CurrentEpoch(ctx context.Context) (Epoch, error) {
	v, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", r.key, err)
	}
	return Epoch(v), nil
}
