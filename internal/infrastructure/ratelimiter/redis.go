package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares bucket state between server instances.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string) GetterSetter {
	return &Redis{
		client:  client,
		prefix:  prefix,
		timeout: 500 * time.Millisecond,
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) Get(key string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	return v, err
}

func (r *Redis) Set(key string, value int) error {
	return r.SetWithExpiration(key, value, 0)
}

func (r *Redis) SetWithExpiration(key string, value int, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	return r.client.Set(ctx, r.key(key), value, expiration).Err()
}

// Close is a no-op: the client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}
