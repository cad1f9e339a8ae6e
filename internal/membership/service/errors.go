package service

import (
	"errors"
	"fmt"

	"slug-portal/backend/internal/platform/rbac"
)

// Sentinel errors for the membership engine; handlers map them to HTTP status codes.
// Typed errors below match these with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidAction = errors.New("invalid_action")
	ErrStore         = errors.New("store unavailable")
)

// Validation codes.
const (
	CodeMissingSlug        = "missing_slug"
	CodeMissingEmail       = "missing_email"
	CodeMissingSlugOrEmail = "missing_slug_or_email"
	CodeInvalidID          = "invalid_id"
)

// ValidationError reports a missing or malformed required input.
type ValidationError struct {
	Code string
}

func (e *ValidationError) Error() string { return e.Code }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ForbiddenError reports a failed admin check. It is never downgraded to not-found.
type ForbiddenError struct {
	Reason rbac.Reason
}

func (e *ForbiddenError) Error() string { return "forbidden:" + string(e.Reason) }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// StoreError wraps a failure of the durable store. Callers should treat it as retry-later.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
