package middleware

import "context"

type contextKey string

const ctxUserKey contextKey = "user_key"

// UserKeyFromContext returns the caller's user key, or "" when absent.
func UserKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserKey).(string); ok {
		return v
	}
	return ""
}

// WithUserKey injects the user key into the context.
func WithUserKey(ctx context.Context, userKey string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserKey, userKey)
}
