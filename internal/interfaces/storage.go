// Package interfaces defines service contracts for vire-track.
package interfaces

import "context"

// StorageManager provides access to the durable storage backend.
// Implementations can be swapped (BadgerDB or Redis, selected by config).
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage provides basic key-value operations over the durable store.
// The engine is the only writer; every value is a versioned JSON record.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetAll(ctx context.Context) (map[string]string, error)
}
