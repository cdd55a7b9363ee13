package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Close() error
}

// RedisStore keeps saves in Redis.
type RedisStore struct {
	client redisClient
}

// NewRedisStore connects to uri. Both host:port and redis:// URLs are accepted.
func NewRedisStore(uri string) (*RedisStore, error) {
	if uri == "" {
		uri = "localhost:6379"
	}
	opts := &redis.Options{Addr: uri}
	if strings.Contains(uri, "://") {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreWithClient allows injecting a custom client (used for tests).
func NewRedisStoreWithClient(c redisClient) *RedisStore {
	return &RedisStore{client: c}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := r.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the connection pool.
func (r *RedisStore) Close() error { return r.client.Close() }
