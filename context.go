package guard

import "context"

type ctxKey string

const (
	ctxKeyGuardID   ctxKey = "guard_id"
	ctxKeyRequestID ctxKey = "guard_request_id"
)

// WithGuardID stores the authenticated guard ID in the context.
func WithGuardID(ctx context.Context, guardID string) context.Context {
	return context.WithValue(ctx, ctxKeyGuardID, guardID)
}

// GuardIDFromContext extracts the authenticated guard ID from the context.
func GuardIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyGuardID).(string)
	return v
}

// WithRequestID stores a request correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request correlation ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}
