// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/legacyvault/internal/platform/config"
	"github.com/taibuivan/legacyvault/internal/storage"
)

/*
TestOpen_Drivers verifies backend selection from configuration.
*/
func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"memory", &config.Config{StoreDriver: config.StoreDriverMemory}},
		{"file", &config.Config{StoreDriver: config.StoreDriverFile, StorePath: filepath.Join(t.TempDir(), "s.json")}},
		{"redis", &config.Config{StoreDriver: config.StoreDriverRedis, RedisURL: "redis://" + server.Addr(), RedisPrefix: "lv:"}},
		{"redis_down_falls_back", &config.Config{StoreDriver: config.StoreDriverRedis, RedisURL: "redis://127.0.0.1:1", RedisPrefix: "lv:"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closer, err := storage.Open(ctx, tt.cfg, logger)
			require.NoError(t, err)
			require.NotNil(t, closer)
			defer closer.Close()

			assert.True(t, store.IsAvailable(ctx))
			assert.True(t, store.Set(ctx, "theme", "dark"))
			theme, ok := storage.Get[string](ctx, store, "theme")
			assert.True(t, ok)
			assert.Equal(t, "dark", theme)
		})
	}

	_, _, err := storage.Open(ctx, &config.Config{StoreDriver: "sqlite"}, logger)
	assert.Error(t, err)
}
