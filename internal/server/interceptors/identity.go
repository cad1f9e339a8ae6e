package interceptors

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/membership/domain"
)

// DefaultIdentityHeader is the header set by the upstream access proxy.
const DefaultIdentityHeader = "cf-access-authenticated-user-email"

// IdentityOptions configures the Identity middleware.
type IdentityOptions struct {
	// Header carries the verified caller email. Defaults to DefaultIdentityHeader.
	Header string
	// DevEmailFallback accepts ?email= when the header is absent. Never enable in production.
	DevEmailFallback bool
}

// Identity returns middleware that resolves the caller's email and client IP into the request context.
// The email is never verified here; the upstream proxy has already authenticated it. A missing email
// leaves the caller anonymous, which every handler accepts as input.
func Identity(opts IdentityOptions) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = DefaultIdentityHeader
	}
	return func(c *gin.Context) {
		email := domain.NormalizeEmail(c.GetHeader(header))
		if email == "" && opts.DevEmailFallback {
			email = domain.NormalizeEmail(c.Query("email"))
		}
		ctx := WithIdentity(c.Request.Context(), email)
		ctx = WithClientIP(ctx, ClientIP(c.Request))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Email returns the caller email resolved by Identity, or "" when anonymous.
func Email(c *gin.Context) string {
	v, _ := GetEmail(c.Request.Context())
	return v
}

// ClientIP returns the client IP from cf-connecting-ip, x-forwarded-for, x-real-ip or the peer address, or "unknown".
func ClientIP(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get("cf-connecting-ip")); s != "" {
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("x-forwarded-for")); s != "" {
		if i := strings.Index(s, ","); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		return s
	}
	if s := strings.TrimSpace(r.Header.Get("x-real-ip")); s != "" {
		return s
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
