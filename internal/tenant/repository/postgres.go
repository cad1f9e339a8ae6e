package repository

import (
	"context"
	"database/sql"
	"errors"

	"slug-portal/backend/internal/tenant/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository backed by the themes table.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBySlug returns the tenant for slug, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var (
		t     domain.Tenant
		brand sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT slug, brand_name FROM themes WHERE slug = $1`, slug).Scan(&t.Slug, &brand)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if brand.Valid {
		t.BrandName = &brand.String
	}
	return &t, nil
}

// BrandNames returns the configured brand names for slugs. Slugs without a row or with a NULL brand are absent.
func (r *PostgresRepository) BrandNames(ctx context.Context, slugs []string) (map[string]string, error) {
	out := make(map[string]string, len(slugs))
	if len(slugs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT slug, brand_name FROM themes WHERE slug = ANY($1) AND brand_name IS NOT NULL`, slugs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var slug, brand string
		if err := rows.Scan(&slug, &brand); err != nil {
			return nil, err
		}
		out[slug] = brand
	}
	return out, rows.Err()
}

// Upsert creates or replaces the tenant's display metadata.
func (r *PostgresRepository) Upsert(ctx context.Context, t *domain.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var brand sql.NullString
	if t.BrandName != nil {
		brand = sql.NullString{String: *t.BrandName, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO themes (slug, brand_name) VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET brand_name = EXCLUDED.brand_name, updated_at = now()`,
		t.Slug, brand)
	return err
}
