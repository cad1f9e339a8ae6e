package repository

import (
	"context"
	"database/sql"

	"slug-portal/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListBySlug returns audit logs for the given slug, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListBySlug(ctx context.Context, slug string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, slug, actor, action, target, ip, metadata, created_at
FROM audit_logs
WHERE slug = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`, slug, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var (
			a     domain.AuditLog
			actor sql.NullString
			meta  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Slug, &actor, &a.Action, &a.Target, &a.IP, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Actor = actor.String
		a.Metadata = meta.String
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	actor := sql.NullString{String: a.Actor, Valid: a.Actor != ""}
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (id, slug, actor, action, target, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Slug, actor, a.Action, a.Target, a.IP, meta, a.CreatedAt)
	return err
}
