package requestctx

import "context"

type key struct{}

// WithRequestID stores the correlation id for everything downstream of the
// request-id middleware.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, key{}, requestID)
}

// GetRequestID returns the correlation id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(key{}).(string)
	return value
}
