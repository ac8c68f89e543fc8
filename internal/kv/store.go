// AngelaMos | 2026
// store.go

// Package kv holds short-lived key/value state (rate-limit windows, CSRF
// tokens, revoked token ids). The in-process store is the default; the Redis
// store shares the same state across instances.
package kv

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Counter is implemented by stores that count atomically across instances.
// Increment adds one to key, starting a ttl-long window on the first hit, and
// returns the new count and the time left in the window.
type Counter interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
}
