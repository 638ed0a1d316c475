package domain

import (
	"context"
)

// VectorEncoder turns text into embeddings, one vector per input in the same order.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
