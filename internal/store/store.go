// Package store defines the expiring key-value contract the lobby persists
// through. Implementations must make single-key operations atomic; nothing is
// assumed across keys.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or has expired.
var ErrNotFound = errors.New("store: key not found")

// Store is a shared cache with per-key expiry.
type Store interface {
	// Get returns the value stored at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites key and (re)arms its expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Add stores value only when key is absent. It reports whether the value
	// was written.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// TouchIf re-arms the expiry of key without rewriting it, but only while
	// the stored value is a JSON object whose string field equals want. It
	// reports whether the expiry was re-armed; an absent key is not an error.
	TouchIf(ctx context.Context, key, field, want string, ttl time.Duration) (bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Scan returns every live key starting with prefix, in no particular order.
	Scan(ctx context.Context, prefix string) ([]string, error)
}
