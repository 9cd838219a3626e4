// Package memory provides an in-memory store backend for tests and
// ephemeral runs. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/k1shan-k/lsspoing/internal/store"
)

// Backend implements store.Backend with a mutex-guarded map.
type Backend struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		values: make(map[string]string),
	}
}

// Get returns the value for key or store.ErrKeyNotFound.
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.values[key]
	if !ok {
		return "", store.ErrKeyNotFound
	}
	return value, nil
}

// Set stores value under key.
func (b *Backend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (b *Backend) Close() error { return nil }

// Len returns the number of stored keys. Test helper.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.values)
}
