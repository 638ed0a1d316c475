package usecase

import (
	"context"
	"time"
)

// withCallTimeout bounds a single upstream call. Zero means no extra bound.
func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
