// Package metadata is a small key/value repository on top of the local
// SQLite database. The credential store keeps tokens, credentials and the
// client identity in it.
package metadata

import (
	"context"
)

// Repository stores opaque values by key.
//
// Get returns (nil, nil) for a missing key. DeleteMany is idempotent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteMany(ctx context.Context, keys ...string) error
}
