// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File permissions for the session document. Tokens are bearer credentials,
// so only the owning user may read them.
const (
	fileMode = 0o600
	dirMode  = 0o700
)

// FileBackend stores all keys in one JSON object on disk.
//
// Every call re-reads the document so that several client processes see each
// other's writes; writes go to a temporary file that is renamed over the
// document so a crash never leaves a half-written file behind.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend returns a backend persisting to path. The parent directory is
// created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the location of the session document.
func (backend *FileBackend) Path() string { return backend.path }

// Get implements [Backend]. A corrupt document is reported as an error.
func (backend *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	values, err := backend.read()
	if err != nil {
		return "", false, err
	}

	value, found := values[key]
	return value, found, nil
}

// Set implements [Backend]. A corrupt document is replaced.
func (backend *FileBackend) Set(_ context.Context, key, value string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	values := backend.readOrEmpty()
	values[key] = value
	return backend.write(values)
}

// Delete implements [Backend].
func (backend *FileBackend) Delete(_ context.Context, key string) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	values := backend.readOrEmpty()
	if _, found := values[key]; !found {
		return nil
	}

	delete(values, key)
	return backend.write(values)
}

// Clear implements [Backend] by removing the document.
func (backend *FileBackend) Clear(_ context.Context) error {
	backend.mu.Lock()
	defer backend.mu.Unlock()

	if err := os.Remove(backend.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", backend.path, err)
	}
	return nil
}

// Ping implements [Backend]. It checks that the directory can be created.
func (backend *FileBackend) Ping(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(backend.path), dirMode); err != nil {
		return fmt.Errorf("storage: prepare %s: %w", filepath.Dir(backend.path), err)
	}
	return nil
}

// read loads the document. A missing file is an empty store.
func (backend *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(backend.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", backend.path, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("storage: corrupt document %s: %w", backend.path, err)
	}

	return values, nil
}

func (backend *FileBackend) readOrEmpty() map[string]string {
	values, err := backend.read()
	if err != nil {
		return make(map[string]string)
	}
	return values
}

// write replaces the document atomically.
func (backend *FileBackend) write(values map[string]string) error {
	dir := filepath.Dir(backend.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("storage: prepare %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Remove the temp file on every failure path; after a successful rename it is gone already.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, backend.path); err != nil {
		return fmt.Errorf("storage: replace %s: %w", backend.path, err)
	}

	return nil
}
