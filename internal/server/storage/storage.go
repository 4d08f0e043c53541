// Package storage defines the key-value store the server keeps all of its
// state in, and hosts the concrete backends in its subpackages.
package storage

import "context"

// Store is a flat key-value store.
//
// Every single call is atomic on its own. There are no multi-key
// transactions: callers that touch several keys must handle partial failure
// themselves.
type Store interface {
	// Get returns the value stored under key
	// Returns ErrNotFound if key doesn't exist
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value under key
	Put(ctx context.Context, key string, value []byte) error

	// PutIfAbsent writes value only if key doesn't exist yet
	// Returns false (and writes nothing) if key is already present
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys returns all keys starting with prefix in ascending order
	// Returns empty slice if nothing matches
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying resources
	Close() error
}
