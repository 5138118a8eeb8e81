// Package cache defines the port interface for key-value caching.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching. A ttl of zero means
// the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
