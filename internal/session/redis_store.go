package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists session ids in Redis, one key per device.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, device string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("redis client not configured")
	}
	id, err := s.client.Get(ctx, slotKey(device)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return id, err
}

// Set stores id without expiry; session ids are meant to outlive restarts.
func (s *RedisStore) Set(ctx context.Context, device, id string) error {
	if s == nil || s.client == nil {
		return errors.New("redis client not configured")
	}
	return s.client.Set(ctx, slotKey(device), id, 0).Err()
}
