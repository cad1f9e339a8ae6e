package interceptors

import (
	"time"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/telemetry"
	"slug-portal/backend/internal/telemetry/domain"
)

// Telemetry returns middleware that emits an http_request event after each request.
// Best-effort: failures are logged and do not fail the request. If emitter is nil, the middleware no-ops.
// skipRoutes is the set of route patterns to not emit (e.g. /healthz).
func Telemetry(emitter telemetry.EventEmitter, skipRoutes map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if emitter == nil || skipRoutes[route] {
			return
		}
		if route == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		email, _ := GetEmail(ctx)
		event := domain.NewEvent(c.Param("slug"), email, domain.EventHTTPRequest, domain.SourceHTTP, map[string]any{
			"method":      c.Request.Method,
			"route":       route,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   ClientIPFromContext(ctx),
			"request_id":  RequestIDFromContext(ctx),
		})
		telemetry.EmitAsync(emitter, ctx, event)
	}
}
