package repository

import (
	"context"

	"slug-portal/backend/internal/tenant/domain"
)

// Repository defines read access to tenant display metadata, plus Upsert for seeding.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	// BrandNames returns brand names keyed by slug for the slugs that have one configured.
	BrandNames(ctx context.Context, slugs []string) (map[string]string, error)
	Upsert(ctx context.Context, t *domain.Tenant) error
}
