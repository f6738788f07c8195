// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/legacyvault/internal/storage"
)

func newRedisBackend(t *testing.T) (*storage.RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return storage.NewRedisBackend(client, "lv:"), server
}

/*
TestRedisBackend_Prefixed verifies that keys are namespaced.
*/
func TestRedisBackend_Prefixed(t *testing.T) {
	ctx := context.Background()
	backend, server := newRedisBackend(t)

	require.NoError(t, backend.Set(ctx, "accessToken", `"A1"`))
	assert.True(t, server.Exists("lv:accessToken"))

	value, found, err := backend.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `"A1"`, value)

	_, found, err = backend.Get(ctx, "refreshToken")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, backend.Delete(ctx, "accessToken"))
	require.NoError(t, backend.Delete(ctx, "accessToken"))
	assert.False(t, server.Exists("lv:accessToken"))
}

/*
TestRedisBackend_ClearKeepsForeignKeys verifies Clear never touches other namespaces.
*/
func TestRedisBackend_ClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	backend, server := newRedisBackend(t)

	require.NoError(t, server.Set("other:key", "keep"))
	for i := 0; i < 250; i++ {
		require.NoError(t, backend.Set(ctx, fmt.Sprintf("k%d", i), "v"))
	}

	require.NoError(t, backend.Clear(ctx))

	assert.Equal(t, []string{"other:key"}, server.Keys())
}

/*
TestRedisBackend_Unreachable verifies the Store degrades to "absent".
*/
func TestRedisBackend_Unreachable(t *testing.T) {
	ctx := context.Background()
	backend, server := newRedisBackend(t)
	store := storage.NewStore(backend, nil)

	require.True(t, store.Set(ctx, "accessToken", "A1"))
	server.Close()

	_, ok := storage.Get[string](ctx, store, "accessToken")
	assert.False(t, ok)
	assert.False(t, store.IsAvailable(ctx))
	assert.Error(t, backend.Ping(ctx))
}
