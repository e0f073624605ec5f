package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.GetItem] when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence collaborator consumed by sessionkit. All values
// are opaque strings; whole-value replacement is the only write primitive,
// so a crash between two writes never produces a partially written value.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// GetItem returns the value stored under key, or [ErrNotFound].
	GetItem(ctx context.Context, key string) (string, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing an absent key is a no-op.
	RemoveItem(ctx context.Context, key string) error

	// Keys returns all keys that start with prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
