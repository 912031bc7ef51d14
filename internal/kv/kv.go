// Package kv stores short-lived string values such as session keys and
// one-time tokens.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for missing or expired keys.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string key/value store with per-key expiry. A ttl of zero
// means the key never expires.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and deletes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
