// Package redis provides a store backend over Redis for hosted deployments
// where the storefront state should live off the local disk.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/k1shan-k/lsspoing/internal/store"
)

const keyPrefix = "storefront:"

// Backend implements store.Backend using Redis.
type Backend struct {
	client *redis.Client
}

// New creates a Redis-backed store backend over an existing client.
func New(client *redis.Client) *Backend {
	return &Backend{client: client}
}

// Get returns the value for key or store.ErrKeyNotFound.
func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	value, err := b.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", store.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key with no expiry; storefront state lives until
// explicitly removed.
func (b *Backend) Set(ctx context.Context, key, value string) error {
	if err := b.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}
