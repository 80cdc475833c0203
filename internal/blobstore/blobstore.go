// Package blobstore provides key-value persistence for opaque binary blobs.
// The ledger is stored as a single blob under a fixed key.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Load when no blob is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Store defines the interface for blob persistence.
// Load and Save are synchronous; Save replaces any previous blob atomically.
type Store interface {
	// Load returns the blob stored under key, or ErrNotExist.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}
