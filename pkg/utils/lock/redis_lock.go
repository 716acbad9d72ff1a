package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLock guards jobs that must not run on two instances at once
type DistributedLock interface {
	// Acquire tries to take the lock for ttl. Returns false if held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock
	Release(ctx context.Context, key string) error
}

// RedisLock is a SETNX-based implementation
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET key value NX EX ttl
	success, err := l.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, "lock:"+key).Err()
}
