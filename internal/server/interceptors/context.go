package interceptors

import (
	"context"

	"handshake/backend/internal/security"
)

type contextKey struct{ name string }

var creatorKey = contextKey{"creator"}

// WithCreator returns a context carrying the authenticated creator. HTTP middleware and gRPC interceptors
// both set it; handlers read it with GetCreator.
func WithCreator(ctx context.Context, c security.Creator) context.Context {
	return context.WithValue(ctx, creatorKey, c)
}

// GetCreator returns the creator from context and true if set; otherwise the zero Creator, false.
func GetCreator(ctx context.Context) (security.Creator, bool) {
	c, ok := ctx.Value(creatorKey).(security.Creator)
	return c, ok
}
