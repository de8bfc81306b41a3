package sessionctx

import (
	"context"

	"github.com/susek555/carmarket-gateway/internal/models"
)

type ctxKey string

const sessionKey ctxKey = "session"

// Create a new context carrying the session snapshot
func New(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Extract the session snapshot from the context
func FromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey).(models.Session)
	return s, ok
}
