package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"slug-portal/backend/internal/membership/domain"
)

const membershipColumns = `id, slug, email, role, status, last_session_at, created_at, updated_at`

const (
	stampSessionSQL = `
INSERT INTO slug_users (slug, email, role, status, last_session_at)
VALUES ($1, $2, 'user', 'active', $3)
ON CONFLICT (slug, email) DO UPDATE SET
  last_session_at = GREATEST(slug_users.last_session_at, EXCLUDED.last_session_at),
  updated_at = now()`

	upsertMemberSQL = `
INSERT INTO slug_users (slug, email, role, status, last_session_at)
VALUES ($1, $2, $3, 'active', NULL)
ON CONFLICT (slug, email) DO UPDATE SET
  role = EXCLUDED.role,
  status = 'active',
  updated_at = now()
RETURNING ` + membershipColumns
)

// actionSQL holds one conditional update per transition. The (id, slug) pair
// scopes the write so an id from another slug never matches.
var actionSQL = map[domain.Action]string{
	domain.ActionPromote:  `UPDATE slug_users SET role = 'admin', updated_at = now() WHERE id = $1 AND slug = $2 RETURNING ` + membershipColumns,
	domain.ActionDemote:   `UPDATE slug_users SET role = 'user', updated_at = now() WHERE id = $1 AND slug = $2 RETURNING ` + membershipColumns,
	domain.ActionPause:    `UPDATE slug_users SET status = 'paused', updated_at = now() WHERE id = $1 AND slug = $2 RETURNING ` + membershipColumns,
	domain.ActionActivate: `UPDATE slug_users SET status = 'active', updated_at = now() WHERE id = $1 AND slug = $2 RETURNING ` + membershipColumns,
}

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBySlugAndEmail returns the membership for (slug, email), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetBySlugAndEmail(ctx context.Context, slug, email string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM slug_users WHERE slug = $1 AND email = $2`, slug, email)
	return scanOptional(row)
}

// ListByEmail returns all memberships for email ordered by slug. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM slug_users WHERE email = $1 ORDER BY slug ASC`, email)
}

// ListBySlug returns all memberships for slug ordered by email. Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListBySlug(ctx context.Context, slug string) ([]*domain.Membership, error) {
	return r.list(ctx, `SELECT `+membershipColumns+` FROM slug_users WHERE slug = $1 ORDER BY email ASC`, slug)
}

// StampSession upserts the membership and moves last_session_at forward, never backward.
// Status and role of an existing row are untouched.
func (r *PostgresRepository) StampSession(ctx context.Context, slug, email string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, stampSessionSQL, slug, email, at.UTC())
	return err
}

// UpsertMember inserts or reinstates the membership with role and returns the resulting row.
func (r *PostgresRepository) UpsertMember(ctx context.Context, slug, email string, role domain.Role) (*domain.Membership, error) {
	return scanMembership(r.db.QueryRowContext(ctx, upsertMemberSQL, slug, email, string(role)))
}

// ApplyAction runs the transition for action against (id, slug). Returns nil, nil when no row matches.
func (r *PostgresRepository) ApplyAction(ctx context.Context, id int64, slug string, action domain.Action) (*domain.Membership, error) {
	q, ok := actionSQL[action]
	if !ok {
		return nil, fmt.Errorf("membership: unsupported action %q", action)
	}
	return scanOptional(r.db.QueryRowContext(ctx, q, id, slug))
}

// Delete removes the membership matching (id, slug). Deleting a missing row is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id int64, slug string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM slug_users WHERE id = $1 AND slug = $2`, id, slug)
	return err
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg string) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOptional(row scanner) (*domain.Membership, error) {
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func scanMembership(row scanner) (*domain.Membership, error) {
	var (
		m           domain.Membership
		role        string
		status      string
		lastSession sql.NullTime
	)
	if err := row.Scan(&m.ID, &m.Slug, &m.Email, &role, &status, &lastSession, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.Status = domain.Status(status)
	if lastSession.Valid {
		t := lastSession.Time.UTC()
		m.LastSessionAt = &t
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}
