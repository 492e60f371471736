package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps blobs as plain string values under prefix+key, with no
// expiry.
type RedisBlobStore struct {
	client *redis.Client
	prefix string
}

func NewRedisBlobStore(client *redis.Client, prefix string) *RedisBlobStore {
	return &RedisBlobStore{client: client, prefix: prefix}
}

func (s *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blob %s (redis): %w", key, err)
	}
	return b, nil
}

func (s *RedisBlobStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set blob %s (redis): %w", key, err)
	}
	return nil
}

func (s *RedisBlobStore) Close() error {
	return s.client.Close()
}
