package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSharedMiss is the shared layer's not-found result.
var ErrSharedMiss = errors.New("shared cache: miss")

// SharedStore is the optional distributed layer behind the in-process
// cache: plain get/set-with-TTL plus a set-if-not-exists claim used for
// cross-process single-flight. Implementations report outages as errors;
// the layered cache treats every shared error as a miss and degrades to
// local-only operation.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// RedisStore backs SharedStore with a Redis client.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and pings; a dead Redis at startup is surfaced so
// the caller can decide to run local-only.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSharedMiss
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.rdb.Close() }
