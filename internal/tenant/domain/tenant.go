package domain

import "errors"

// Tenant is the display metadata kept for a slug. It is never consulted for authorization.
type Tenant struct {
	Slug      string
	BrandName *string // nil when no brand is configured
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.Slug == "" {
		return errors.New("slug is required")
	}
	return nil
}
