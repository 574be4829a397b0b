package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger attaches l to ctx. Handlers use it to hand the
// request-scoped logger down to use cases.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext never returns nil; a bare context yields a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	l, _ := ctx.Value(ctxKey{}).(*zap.Logger)
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// With scopes extra fields (a book id, a query) to everything logged below ctx.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}
