// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"maps"
	"sync"
)

// MemoryBackend keeps values in process memory. Nothing survives a restart,
// so it suits tests and one-shot scripted runs.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get implements [Backend].
func (backend *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	backend.mu.RLock()
	defer backend.mu.RUnlock()

	value, found := backend.values[key]
	return value, found, nil
}

// Set implements [Backend].
func (backend *MemoryBackend) Set(_ context.Context, key, value string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	backend.values[key] = value
	return nil
}

// Delete implements [Backend].
func (backend *MemoryBackend) Delete(_ context.Context, key string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	delete(backend.values, key)
	return nil
}

// Clear implements [Backend].
func (backend *MemoryBackend) Clear(_ context.Context) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	clear(backend.values)
	return nil
}

// Ping implements [Backend].
func (backend *MemoryBackend) Ping(context.Context) error { return nil }

// Snapshot returns a copy of the raw stored text, keyed by key.
func (backend *MemoryBackend) Snapshot() map[string]string {
	backend.mu.RLock()
	defer backend.mu.RUnlock()

	return maps.Clone(backend.values)
}
