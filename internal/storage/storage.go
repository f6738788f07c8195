// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storage implements the persistent key-value store the client keeps its
session record and UI preferences in.

# Architecture

  - Backend: raw text storage (memory, JSON file on disk, or Redis).
  - Store: JSON (de)serialization on top of a Backend with a fail-silent policy.

# Failure Policy

Storage is a cache, not a source of truth: the vault API owns identity. Every
Store operation logs its failure locally and reports it only as a boolean the
caller is allowed to ignore. A value that cannot be decoded reads as absent.
Nothing in this package ever returns an error to a Store caller.
*/
package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
)

// probeKey is written and removed by [Store.IsAvailable].
const probeKey = "__storage_probe__"

// # Contracts

// Backend is raw textual key-value storage.
//
// Implementations must be safe for concurrent use. Writes are last-write-wins
// per key.
type Backend interface {
	// Get returns the stored text and true, or false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by this backend.
	Clear(ctx context.Context) error

	// Ping reports whether the backend can currently serve requests.
	Ping(ctx context.Context) error
}

// # Store

// Store is the typed, fail-silent facade over a [Backend].
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// NewStore wraps backend. A nil logger falls back to [slog.Default].
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger.With(slog.String("component", "storage"))}
}

// Get reads key and decodes it into T.
//
// It returns the zero value and false when the key is absent, the backend fails
// or the stored text is not valid JSON for T.
func Get[T any](ctx context.Context, store *Store, key string) (T, bool) {
	var value T

	raw, found, err := store.backend.Get(ctx, key)
	if err != nil {
		store.fail(ctx, "storage_get_failed", key, err)
		return value, false
	}
	if !found {
		return value, false
	}

	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		store.fail(ctx, "storage_decode_failed", key, err)
		var zero T
		return zero, false
	}

	return value, true
}

// Set encodes value as JSON and stores it under key.
//
// It reports whether the write reached the backend. Callers must not assume
// persistence succeeded even when they ignore the result.
func (store *Store) Set(ctx context.Context, key string, value any) bool {
	encoded, err := json.Marshal(value)
	if err != nil {
		store.fail(ctx, "storage_encode_failed", key, err)
		return false
	}

	if err := store.backend.Set(ctx, key, string(encoded)); err != nil {
		store.fail(ctx, "storage_set_failed", key, err)
		return false
	}

	return true
}

// Remove deletes key. Removing an absent key succeeds.
func (store *Store) Remove(ctx context.Context, key string) bool {
	if err := store.backend.Delete(ctx, key); err != nil {
		store.fail(ctx, "storage_remove_failed", key, err)
		return false
	}
	return true
}

// Clear removes every key from the backend.
func (store *Store) Clear(ctx context.Context) bool {
	if err := store.backend.Clear(ctx); err != nil {
		store.fail(ctx, "storage_clear_failed", "", err)
		return false
	}
	return true
}

// fail logs a swallowed backend failure as a storage-class error.
func (store *Store) fail(ctx context.Context, event, key string, err error) {
	storageErr := apperr.Storage(err)
	store.logger.ErrorContext(ctx, event,
		slog.String("key", key),
		slog.String("code", storageErr.Code),
		slog.Any("error", storageErr.Cause),
	)
}

// IsAvailable probes the backend with a write and a delete.
func (store *Store) IsAvailable(ctx context.Context) bool {
	if err := store.backend.Set(ctx, probeKey, probeKey); err != nil {
		return false
	}
	if err := store.backend.Delete(ctx, probeKey); err != nil {
		return false
	}
	return true
}
