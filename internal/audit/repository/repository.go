package repository

import (
	"context"

	"slug-portal/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	// ListBySlug returns the newest entries of slug first, paginated by limit and offset.
	ListBySlug(ctx context.Context, slug string, limit, offset int32) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
