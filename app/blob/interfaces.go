package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no blob exists for the key.
var ErrNotFound = errors.New("blob not found")

// Store is a key-addressed content store. Keys are namespaced by content kind
// by the callers (see keys.go); the store itself is agnostic to the layout.
type Store interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}
