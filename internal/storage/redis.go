// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// clearBatchSize is the SCAN page size used by [RedisBackend.Clear].
const clearBatchSize = 100

// RedisBackend stores values as plain Redis strings under a key prefix.
//
// Keys carry no TTL: the session record lives until logout, exactly as with
// the file backend. Clear only touches keys under the prefix, never the whole
// database.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend returns a backend namespacing every key with prefix.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (backend *RedisBackend) key(key string) string {
	return backend.prefix + key
}

/*
Get implements [Backend].

Returns:
  - string: Stored text
  - bool: false when the key is absent (redis.Nil)
  - error: Connectivity errors
*/
func (backend *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := backend.client.Get(ctx, backend.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis_storage_get_failed: %w", err)
	}
	return value, true, nil
}

// Set implements [Backend].
func (backend *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := backend.client.Set(ctx, backend.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis_storage_set_failed: %w", err)
	}
	return nil
}

// Delete implements [Backend].
func (backend *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := backend.client.Del(ctx, backend.key(key)).Err(); err != nil {
		return fmt.Errorf("redis_storage_delete_failed: %w", err)
	}
	return nil
}

// Clear implements [Backend] by deleting every key under the prefix.
func (backend *RedisBackend) Clear(ctx context.Context) error {
	iter := backend.client.Scan(ctx, 0, backend.prefix+"*", clearBatchSize).Iterator()

	batch := make([]string, 0, clearBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatchSize {
			if err := backend.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis_storage_clear_failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis_storage_scan_failed: %w", err)
	}

	if len(batch) > 0 {
		if err := backend.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis_storage_clear_failed: %w", err)
		}
	}

	return nil
}

// Ping implements [Backend].
func (backend *RedisBackend) Ping(ctx context.Context) error {
	if err := backend.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis_storage_ping_failed: %w", err)
	}
	return nil
}
