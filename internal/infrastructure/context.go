package infrastructure

import "context"

type contextKey string

// traceIDKey carries the request trace ID through the call chain so the
// logger can attach it to every record.
const traceIDKey contextKey = "trace_id"

// WithTraceID returns a context carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
