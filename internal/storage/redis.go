package storage

import (
	"context"
	"errors"
	"fmt"

	rd "github.com/go-redis/redis/v9"
)

// RedisStore keeps a namespace as one Redis hash.
type RedisStore struct {
	client    rd.UniversalClient
	namespace string
}

// NewRedisStore connects to addr and pings it. Caller must call Close.
func NewRedisStore(ctx context.Context, addr, namespace string) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("storage: REDIS_ADDR is required for the redis driver")
	}
	client := rd.NewUniversalClient(&rd.UniversalOptions{Addrs: []string{addr}})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis ping: %w", err)
	}
	return NewRedisStoreFromClient(client, namespace), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client rd.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) hashKey() string {
	return fmt.Sprintf("%s:%s", s.namespace, "client_storage")
}

// Set stores value under key.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.HSet(ctx, s.hashKey(), key, value).Err()
}

// SetMany stores every pair with a single HSET.
func (s *RedisStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return s.client.HSet(ctx, s.hashKey(), pairs).Err()
}

// Get returns the value for key, or ok false if not found.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.hashKey(), key).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.hashKey(), key).Err()
}

// All returns every pair in the namespace.
func (s *RedisStore) All(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.hashKey()).Result()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// PingContext checks the Redis connection.
func (s *RedisStore) PingContext(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
