package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/server/interceptors"
	"slug-portal/backend/internal/server/response"
	"slug-portal/backend/internal/telemetry"
)

// HealthPath is served without identity and is not reported to telemetry.
const HealthPath = "/healthz"

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r gin.IRouter)
}

// RouterDeps holds the HTTP router's collaborators. Nil fields are skipped.
type RouterDeps struct {
	Identity interceptors.IdentityOptions
	// Emitter receives one http_request event per request.
	Emitter telemetry.EventEmitter
	// Healthz answers HealthPath. Defaults to an unconditional 200.
	Healthz gin.HandlerFunc
	// Routes are mounted in order.
	Routes []Registrar
}

// NewRouter returns the portal's gin engine with recovery, identity and telemetry middleware,
// JSON 404 and 405 answers, and every registrar in deps mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(interceptors.Recovery(), interceptors.RequestID())

	healthz := deps.Healthz
	if healthz == nil {
		healthz = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	}
	r.GET(HealthPath, healthz)

	api := r.Group("")
	api.Use(interceptors.Identity(deps.Identity))
	if deps.Emitter != nil {
		api.Use(interceptors.Telemetry(deps.Emitter, map[string]bool{HealthPath: true}))
	}
	for _, reg := range deps.Routes {
		if reg != nil {
			reg.Register(api)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.CodeNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, response.CodeMethodNotAllowed)
	})
	return r
}
