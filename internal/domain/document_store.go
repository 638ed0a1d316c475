package domain

import (
	"context"
	"io"
)

// DocumentStore holds uploaded files until an ingestion job consumes them.
type DocumentStore interface {
	// Save stores r under a fresh key derived from name.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
