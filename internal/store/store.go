// Package store provides the durable key/value persistence both the session
// and the commerce state are written to. The wrapper swallows backend
// failures: higher layers must tolerate a store that behaves as if always
// empty, so every failure is reduced to a logged warning.
package store

import (
	"context"
	"errors"
	"log/slog"
)

// ErrKeyNotFound is returned by backends when a key has no value.
var ErrKeyNotFound = errors.New("key not found")

// Backend is a durable key/value storage driver.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Store wraps a Backend with the failure semantics the rest of the
// application relies on: reads never fail (absence is a normal result) and
// writes are best-effort.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a store over the given backend.
func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// Get returns the value for key and whether it was present. Backend errors
// are logged and reported as absence.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.WarnContext(ctx, "store read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return value, true
}

// Set durably writes value under key. A failed write is logged and otherwise
// ignored; callers must not depend on it having succeeded.
func (s *Store) Set(ctx context.Context, key, value string) {
	if err := s.backend.Set(ctx, key, value); err != nil {
		s.logger.WarnContext(ctx, "store write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Remove deletes key. Removing an absent key is a no-op, and backend errors
// are logged and ignored.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrKeyNotFound) {
		s.logger.WarnContext(ctx, "store delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Ping reports whether the underlying backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
