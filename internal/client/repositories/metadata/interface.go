// Package metadata is the device-local key-value store. It persists the
// wrapped private key (and nothing else sensitive) under a configurable key
// name so the core never touches storage directly.
package metadata

import (
	"context"
)

// Repository is a durable key-value store.
//
// Get returns (nil, nil) when the key does not exist. Set fully replaces any
// previous value.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
