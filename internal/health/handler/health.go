package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the membership engine.
const ServiceName = "slugportal.membership"

// Pinger is implemented by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA authorizer.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Checker reports readiness from the store and, when configured, the policy engine.
// Nil dependencies are skipped.
type Checker struct {
	pinger  Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// NewChecker returns a readiness checker. Either argument may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy, timeout: 2 * time.Second}
}

// Check returns nil when every configured dependency is healthy.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	var errs []error
	if c.pinger != nil {
		if err := c.pinger.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if c.policy != nil {
		if err := c.policy.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("policy: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Healthz handles GET /healthz. It answers 503 while a dependency is down.
func (c *Checker) Healthz(gc *gin.Context) {
	if err := c.Check(gc.Request.Context()); err != nil {
		log.Printf("health: not ready: %v", err)
		gc.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "not_ready"})
		return
	}
	gc.JSON(http.StatusOK, gin.H{"ok": true})
}

// Watch runs Check every interval and publishes the result on hs for both the overall
// server and ServiceName. It returns when ctx is done, leaving hs NOT_SERVING.
func (c *Checker) Watch(ctx context.Context, hs *health.Server, interval time.Duration) {
	c.publish(ctx, hs)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			c.publish(ctx, hs)
		}
	}
}

func (c *Checker) publish(ctx context.Context, hs *health.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		log.Printf("health: not serving: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(ServiceName, status)
}
