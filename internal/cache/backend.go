package cache

import (
	"context"
	"time"
)

// Backend is the raw byte store under the cache plane
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// SetNX stores val only when key holds no unexpired value
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	// DelIfValue deletes key only while it still holds val
	DelIfValue(ctx context.Context, key string, val []byte) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
