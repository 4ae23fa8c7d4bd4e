package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// RedisStorage persists snapshots in Redis without expiry; snapshots are a
// recovery mechanism, not a cache, so they never age out on their own.
type RedisStorage struct {
	client *redis.Client
}

func (r *RedisStorage) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := r.client.Get(ctx, snapshotKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Save(ctx context.Context, name string, data []byte) error {
	if err := r.client.Set(ctx, snapshotKey(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, snapshotKey(name)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func snapshotKey(name string) string {
	return fmt.Sprintf("snapshot:%s", name)
}
