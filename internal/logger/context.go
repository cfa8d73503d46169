package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger attaches a request-scoped logger to ctx.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached to ctx, or a no-op logger when
// none was attached.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}
