package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const requestIDKey contextKey = "xpipe.request_id"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// L returns base, or Default when base is nil, enriched with the request ID
// and the ID of the active trace span carried by ctx.
func L(ctx context.Context, base Logger) Logger {
	l := base
	if l == nil {
		l = Default()
	}

	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With("trace_id", sc.TraceID().String())
	}
	return l.WithContext(ctx)
}
