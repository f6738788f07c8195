// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/taibuivan/legacyvault/internal/platform/config"
	redisstore "github.com/taibuivan/legacyvault/internal/platform/redis"
)

// nopCloser is returned for backends that hold no external resources.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

/*
Open builds the [Store] selected by cfg.StoreDriver.

When the Redis server cannot be reached the client degrades to an in-memory
store: the user is treated as signed out, which is the documented behavior for
an unavailable store.

Returns:
  - *Store: Ready-to-use store
  - io.Closer: Releases the backend (Redis connection); always non-nil
  - error: Only for configuration errors (unknown driver)
*/
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return NewStore(NewMemoryBackend(), logger), nopCloser{}, nil

	case config.StoreDriverFile:
		logger.Debug("storage_opened", slog.String("driver", cfg.StoreDriver), slog.String("path", cfg.StorePath))
		return NewStore(NewFileBackend(cfg.StorePath), logger), nopCloser{}, nil

	case config.StoreDriverRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("storage_unavailable_fallback_memory", slog.Any("error", err))
			return NewStore(NewMemoryBackend(), logger), nopCloser{}, nil
		}
		return NewStore(NewRedisBackend(client, cfg.RedisPrefix), logger), client, nil

	default:
		return nil, nil, fmt.Errorf("storage: unknown driver %q", cfg.StoreDriver)
	}
}
