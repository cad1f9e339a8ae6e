package service

import (
	"time"

	"slug-portal/backend/internal/membership/domain"
)

// SessionView is what a caller sees about itself. Email and ActiveSlug are nil for an anonymous caller.
type SessionView struct {
	Email       *string
	ActiveSlug  *string
	Memberships []SessionMembership
}

// SessionMembership is one of the caller's memberships with its inactivity annotation.
type SessionMembership struct {
	Slug          string
	BrandName     *string
	Role          domain.Role
	Status        domain.Status
	LastSessionAt *time.Time
	domain.Inactivity
}

// StampConfirmation acknowledges a session stamp.
type StampConfirmation struct {
	Slug    string
	Email   string
	Stamped bool
}
