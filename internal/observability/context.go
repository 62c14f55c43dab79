package observability

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

// Request-scoped context keys set by the HTTP middleware.
const (
	CorrelationIDKey ctxKey = "correlation_id"
	LoggerKey        ctxKey = "logger"
)

// LoggerFromContext returns the request logger, or fallback when none was attached.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if v := ctx.Value(LoggerKey); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// CorrelationID returns the request correlation id, or "".
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return v
	}
	return ""
}
