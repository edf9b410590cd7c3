// Package store defines the flat key-value abstraction the lifecycle engine
// persists through. Records are opaque byte values with per-key expiry; there
// are no transactions, secondary indexes or joins, so repositories built on
// top denormalize whatever they need into each record.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or already expired.
var ErrNotFound = errors.New("store: key not found")

// Page is one page of a prefix listing. Keys come back in the store's native
// key order. NextCursor is only meaningful when HasMore is true.
type Page struct {
	Keys       []string
	NextCursor string
	HasMore    bool
}

// Store is the uniform persistence surface shared by all repositories.
// A zero TTL means the record never expires.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any existing record and
	// resetting its expiry to now+ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the record. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns up to limit keys sharing prefix, starting after cursor
	// (empty cursor starts from the beginning).
	List(ctx context.Context, prefix string, limit int, cursor string) (Page, error)
}
