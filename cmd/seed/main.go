// seed inserts development sample data for local testing. Run via go run ./cmd/seed after migrating.
// Idempotent: skips inserts if the dev tenant (acme) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"slug-portal/backend/internal/config"
	"slug-portal/backend/internal/db"
	membershipdomain "slug-portal/backend/internal/membership/domain"
	membershiprepo "slug-portal/backend/internal/membership/repository"
	tenantdomain "slug-portal/backend/internal/tenant/domain"
	tenantrepo "slug-portal/backend/internal/tenant/repository"
)

const (
	devSlug       = "acme"
	devBrand      = "Acme"
	otherSlug     = "globex"
	devAdminEmail = "admin@acme.test"
	memberEmail   = "member@acme.test"
	pausedEmail   = "paused@acme.test"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	applied, err := seed(context.Background(), tenantrepo.NewPostgresRepository(conn), membershiprepo.NewPostgresRepository(conn), time.Now())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if !applied {
		log.Printf("Seed already applied (tenant %s exists). Skipping.", devSlug)
		os.Exit(0)
	}

	log.Println("Seed complete.")
	log.Printf("  Slug: %s (%s), %s", devSlug, devBrand, otherSlug)
	log.Printf("  Admin: %s", devAdminEmail)
	log.Printf("  Members: %s (active), %s (paused)", memberEmail, pausedEmail)
	log.Printf("  Try: curl -H 'cf-access-authenticated-user-email: %s' localhost%s/api/auth/session", devAdminEmail, cfg.HTTPAddr)
}

// seed writes the dev data and reports whether it did. It writes nothing when the dev tenant exists.
func seed(ctx context.Context, tenants tenantrepo.Repository, memberships membershiprepo.Repository, now time.Time) (bool, error) {
	existing, err := tenants.GetBySlug(ctx, devSlug)
	if err != nil {
		return false, fmt.Errorf("check tenant %s: %w", devSlug, err)
	}
	if existing != nil {
		return false, nil
	}

	if err := tenants.Upsert(ctx, &tenantdomain.Tenant{Slug: otherSlug}); err != nil {
		return false, fmt.Errorf("create tenant %s: %w", otherSlug, err)
	}
	if _, err := memberships.UpsertMember(ctx, devSlug, devAdminEmail, membershipdomain.RoleAdmin); err != nil {
		return false, fmt.Errorf("create dev admin: %w", err)
	}
	if err := memberships.StampSession(ctx, devSlug, devAdminEmail, now); err != nil {
		return false, fmt.Errorf("stamp dev admin: %w", err)
	}
	if _, err := memberships.UpsertMember(ctx, devSlug, memberEmail, membershipdomain.RoleUser); err != nil {
		return false, fmt.Errorf("create member: %w", err)
	}
	// A member of a second slug, so the session view lists more than one membership.
	if err := memberships.StampSession(ctx, otherSlug, devAdminEmail, now.AddDate(0, 0, -120)); err != nil {
		return false, fmt.Errorf("stamp %s: %w", otherSlug, err)
	}
	paused, err := memberships.UpsertMember(ctx, devSlug, pausedEmail, membershipdomain.RoleUser)
	if err != nil {
		return false, fmt.Errorf("create paused member: %w", err)
	}
	if _, err := memberships.ApplyAction(ctx, paused.ID, devSlug, membershipdomain.ActionPause); err != nil {
		return false, fmt.Errorf("pause member: %w", err)
	}

	// The dev tenant row is written last; its presence marks a completed seed.
	brand := devBrand
	if err := tenants.Upsert(ctx, &tenantdomain.Tenant{Slug: devSlug, BrandName: &brand}); err != nil {
		return false, fmt.Errorf("create tenant %s: %w", devSlug, err)
	}
	return true, nil
}
