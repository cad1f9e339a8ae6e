package engine

import (
	"context"
	"testing"

	"slug-portal/backend/internal/membership/domain"
	"slug-portal/backend/internal/platform/rbac"
)

func TestOPAAuthorizer_HealthCheck(t *testing.T) {
	a, err := NewOPAAuthorizer(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAAuthorizer: %v", err)
	}
	if err := a.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAAuthorizer_MatchesLadder(t *testing.T) {
	a, err := NewOPAAuthorizer(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAAuthorizer: %v", err)
	}
	testCases := []struct {
		name string
		m    *domain.Membership
	}{
		{"no row", nil},
		{"active admin", &domain.Membership{Slug: "acme", Role: domain.RoleAdmin, Status: domain.StatusActive}},
		{"active user", &domain.Membership{Slug: "acme", Role: domain.RoleUser, Status: domain.StatusActive}},
		{"paused admin", &domain.Membership{Slug: "acme", Role: domain.RoleAdmin, Status: domain.StatusPaused}},
		{"paused user", &domain.Membership{Slug: "acme", Role: domain.RoleUser, Status: domain.StatusPaused}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Decide(context.Background(), tc.m)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if want := rbac.Evaluate(tc.m); got != want {
				t.Errorf("Decide = %+v, ladder = %+v", got, want)
			}
		})
	}
}

func TestNewOPAAuthorizer_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAAuthorizer(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestOPAAuthorizer_UnknownReasonFallsBackToLadder(t *testing.T) {
	policy := `package portal.membership

default allow := false

reason := "because"
`
	a, err := NewOPAAuthorizer(context.Background(), policy)
	if err != nil {
		t.Fatalf("NewOPAAuthorizer: %v", err)
	}
	m := &domain.Membership{Role: domain.RoleUser, Status: domain.StatusActive}
	got, err := a.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got != rbac.Deny(rbac.ReasonNotAdmin) {
		t.Errorf("Decide = %+v, want ladder fallback not_admin", got)
	}
	if err := a.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck should report the unusable policy")
	}
}
