package domain

import "context"

// ContentStore keeps the original files that citations point at, keyed by
// source file name.
type ContentStore interface {
	Put(ctx context.Context, name string, data []byte) error
	// Get returns ErrContentNotFound when name was never stored.
	Get(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	RemoveAll(ctx context.Context) error
}
