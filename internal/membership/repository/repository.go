package repository

import (
	"context"
	"time"

	"slug-portal/backend/internal/membership/domain"
)

// Repository defines persistence for slug memberships. Every mutating method
// is a single atomic statement; (slug, email) uniqueness is enforced by the store.
type Repository interface {
	// GetBySlugAndEmail returns the membership for (slug, email), or nil if not found.
	GetBySlugAndEmail(ctx context.Context, slug, email string) (*domain.Membership, error)
	// ListByEmail returns every membership of email ordered by slug ascending.
	ListByEmail(ctx context.Context, email string) ([]*domain.Membership, error)
	// ListBySlug returns every membership of slug ordered by email ascending.
	ListBySlug(ctx context.Context, slug string) ([]*domain.Membership, error)
	// StampSession inserts (slug, email) as an active user stamped at at, or only
	// moves last_session_at to at when the row exists and at is later than the stored value.
	StampSession(ctx context.Context, slug, email string, at time.Time) error
	// UpsertMember inserts (slug, email) with role as active and never stamped, or
	// overwrites role and forces status active when the row exists.
	UpsertMember(ctx context.Context, slug, email string, role domain.Role) (*domain.Membership, error)
	// ApplyAction applies action to the row matching (id, slug) and returns it, or nil if no row matches.
	ApplyAction(ctx context.Context, id int64, slug string, action domain.Action) (*domain.Membership, error)
	// Delete removes the row matching (id, slug). Missing rows are not an error.
	Delete(ctx context.Context, id int64, slug string) error
}
