// Package response writes the portal's JSON envelope: {"ok":true,...} on success and
// {"ok":false,"error":code} on failure.
package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/membership/service"
)

// Error codes not owned by the membership engine.
const (
	CodeMethodNotAllowed = "method_not_allowed"
	CodeNotFound         = "not_found"
	CodeInvalidBody      = "invalid_body"
	CodeStoreUnavailable = "exception:store_unavailable"
	CodeInternal         = "exception:internal"
)

// OK writes status with body merged into {"ok":true}.
func OK(c *gin.Context, status int, body gin.H) {
	out := gin.H{"ok": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(status, out)
}

// Fail writes status with {"ok":false,"error":code} and aborts the chain.
func Fail(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": code})
}

// Error maps an engine error to its status and wire code.
func Error(c *gin.Context, err error) {
	status, code := Classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("http: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	Fail(c, status, code)
}

// Classify returns the HTTP status and wire code for err.
func Classify(err error) (int, string) {
	var (
		ve *service.ValidationError
		fe *service.ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Code
	case errors.As(err, &fe):
		return http.StatusForbidden, fe.Error()
	case errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest, "invalid_action"
	case errors.Is(err, service.ErrStore):
		return http.StatusInternalServerError, CodeStoreUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
