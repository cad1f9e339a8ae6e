package interceptors

import "context"

type contextKey struct{ name string }

var (
	emailKey    = contextKey{"email"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the caller's normalized email. An empty email marks an anonymous caller.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// GetEmail returns the email from context and true if set; otherwise "", false.
func GetEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}

// WithClientIP returns a context carrying the client IP of the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the client IP stored by the identity middleware, or "unknown".
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
