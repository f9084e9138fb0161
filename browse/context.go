package browse

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const SessionIDKey ContextKey = "session_id"

// WithSessionID tags ctx with a session id for log correlation.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// NewSessionContext tags ctx with a fresh random session id.
func NewSessionContext(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithSessionID(ctx, id), id
}

// SessionID returns the session id stored in ctx, or "".
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns base with the session id attached, if any.
func LoggerFromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if id := SessionID(ctx); id != "" {
		return base.With(zap.String("session_id", id))
	}
	return base
}
