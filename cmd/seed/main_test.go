package main

import (
	"context"
	"errors"
	"testing"
	"time"

	membershipdomain "slug-portal/backend/internal/membership/domain"
	tenantdomain "slug-portal/backend/internal/tenant/domain"
)

type memTenants struct {
	rows   map[string]*tenantdomain.Tenant
	getErr error
}

func (m *memTenants) GetBySlug(_ context.Context, slug string) (*tenantdomain.Tenant, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.rows[slug], nil
}

func (m *memTenants) BrandNames(context.Context, []string) (map[string]string, error) {
	return nil, nil
}

func (m *memTenants) Upsert(_ context.Context, t *tenantdomain.Tenant) error {
	m.rows[t.Slug] = t
	return nil
}

type memMemberships struct {
	nextID int64
	rows   map[string]*membershipdomain.Membership // slug/email
}

func (m *memMemberships) key(slug, email string) string { return slug + "/" + email }

func (m *memMemberships) GetBySlugAndEmail(_ context.Context, slug, email string) (*membershipdomain.Membership, error) {
	return m.rows[m.key(slug, email)], nil
}

func (m *memMemberships) ListByEmail(context.Context, string) ([]*membershipdomain.Membership, error) {
	return nil, nil
}

func (m *memMemberships) ListBySlug(context.Context, string) ([]*membershipdomain.Membership, error) {
	return nil, nil
}

func (m *memMemberships) StampSession(_ context.Context, slug, email string, at time.Time) error {
	if r := m.rows[m.key(slug, email)]; r != nil {
		r.LastSessionAt = &at
		return nil
	}
	m.nextID++
	m.rows[m.key(slug, email)] = &membershipdomain.Membership{ID: m.nextID, Slug: slug, Email: email, Role: membershipdomain.RoleUser, Status: membershipdomain.StatusActive, LastSessionAt: &at}
	return nil
}

func (m *memMemberships) UpsertMember(_ context.Context, slug, email string, role membershipdomain.Role) (*membershipdomain.Membership, error) {
	if r := m.rows[m.key(slug, email)]; r != nil {
		r.Role, r.Status = role, membershipdomain.StatusActive
		return r, nil
	}
	m.nextID++
	r := &membershipdomain.Membership{ID: m.nextID, Slug: slug, Email: email, Role: role, Status: membershipdomain.StatusActive}
	m.rows[m.key(slug, email)] = r
	return r, nil
}

func (m *memMemberships) ApplyAction(_ context.Context, id int64, slug string, a membershipdomain.Action) (*membershipdomain.Membership, error) {
	for _, r := range m.rows {
		if r.ID == id && r.Slug == slug {
			*r = a.Apply(*r)
			return r, nil
		}
	}
	return nil, nil
}

func (m *memMemberships) Delete(context.Context, int64, string) error { return nil }

func newStores() (*memTenants, *memMemberships) {
	return &memTenants{rows: map[string]*tenantdomain.Tenant{}},
		&memMemberships{rows: map[string]*membershipdomain.Membership{}}
}

func TestSeed_WritesDevData(t *testing.T) {
	tenants, memberships := newStores()
	applied, err := seed(context.Background(), tenants, memberships, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !applied {
		t.Fatal("seed should apply on an empty store")
	}
	acme := tenants.rows[devSlug]
	if acme == nil || acme.BrandName == nil || *acme.BrandName != devBrand {
		t.Errorf("tenant %s = %+v", devSlug, acme)
	}
	admin := memberships.rows[memberships.key(devSlug, devAdminEmail)]
	if admin == nil || admin.Role != membershipdomain.RoleAdmin || admin.LastSessionAt == nil {
		t.Errorf("admin = %+v", admin)
	}
	if p := memberships.rows[memberships.key(devSlug, pausedEmail)]; p == nil || p.Status != membershipdomain.StatusPaused {
		t.Errorf("paused member = %+v", p)
	}
}

func TestSeed_SkipsWhenTenantExists(t *testing.T) {
	tenants, memberships := newStores()
	tenants.rows[devSlug] = &tenantdomain.Tenant{Slug: devSlug}
	applied, err := seed(context.Background(), tenants, memberships, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if applied {
		t.Error("seed should skip when the dev tenant exists")
	}
	if len(memberships.rows) != 0 {
		t.Errorf("memberships written = %d, want 0", len(memberships.rows))
	}
}

func TestSeed_TenantLookupError(t *testing.T) {
	tenants, memberships := newStores()
	tenants.getErr = errors.New("db down")
	if _, err := seed(context.Background(), tenants, memberships, time.Now()); err == nil {
		t.Fatal("seed should fail when the tenant lookup fails")
	}
	if len(memberships.rows) != 0 {
		t.Error("nothing should be written after a failed lookup")
	}
}
