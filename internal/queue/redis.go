package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a queue backed by a Redis list.
type Redis struct {
	rdb *redis.Client
	key string
}

func NewRedis(rdb *redis.Client, key string) *Redis {
	return &Redis{rdb: rdb, key: key}
}

func (q *Redis) Push(ctx context.Context, payload string) error {
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

func (q *Redis) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	// BLPop returns [key, value].
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", err
	}
	if len(result) < 2 {
		return "", ErrEmpty
	}
	return result[1], nil
}

func (q *Redis) TryPop(ctx context.Context) (string, error) {
	v, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	return v, err
}
