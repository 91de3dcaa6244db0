// Package metadata is the local key/value store of the client. It holds
// the signed-in session between runs.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store.
// Get returns common.ErrNotFound for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
