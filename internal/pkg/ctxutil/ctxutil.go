package ctxutil

import (
	"context"
	"time"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached returns a context that survives cancellation of its parent but
// still carries a hard deadline. Compensating cleanup runs under it so a
// caller cancel cannot orphan half-written artifacts.
func Detached(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
