package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Store is the key-value capability the handlers depend on. Callers that only
// cache (as opposed to storing refresh tokens) should go through the tolerant
// helpers below so a broken cache never fails a request.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// TryGet reads a cached value, treating any cache failure as a miss.
func TryGet(ctx context.Context, store Store, key string) (string, bool) {
	if store == nil {
		return "", false
	}
	value, err := store.Get(ctx, key)
	if err != nil {
		if err != ErrMiss {
			log.Println("[CACHE] [WARN] get failed for", key, ":", err)
		}
		return "", false
	}
	return value, true
}

// TrySet writes a cached value best-effort. Failures are logged, never returned.
func TrySet(ctx context.Context, store Store, key, value string, ttl time.Duration) {
	if store == nil {
		return
	}
	if err := store.Set(ctx, key, value, ttl); err != nil {
		log.Println("[CACHE] [WARN] set failed for", key, ":", err)
	}
}
