package rbac

import (
	"context"

	"slug-portal/backend/internal/membership/domain"
)

// Reason tags a denied admin check.
type Reason string

const (
	ReasonNotAMember       Reason = "not_a_member"
	ReasonMembershipPaused Reason = "membership_paused"
	ReasonNotAdmin         Reason = "not_admin"
)

// Decision is the outcome of an admin check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny returns a negative decision tagged with reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Evaluate runs the admin ladder on m. The first failing guard wins:
// a missing row before a paused row before a non-admin role.
func Evaluate(m *domain.Membership) Decision {
	if m == nil {
		return Deny(ReasonNotAMember)
	}
	if !m.IsActive() {
		return Deny(ReasonMembershipPaused)
	}
	if !m.IsAdmin() {
		return Deny(ReasonNotAdmin)
	}
	return Allow
}

// Authorizer decides whether a resolved membership (nil when absent) may administer its slug.
type Authorizer interface {
	Decide(ctx context.Context, m *domain.Membership) (Decision, error)
}

// Ladder is the in-process Authorizer backed by Evaluate.
type Ladder struct{}

func (Ladder) Decide(_ context.Context, m *domain.Membership) (Decision, error) {
	return Evaluate(m), nil
}

// SlugMembershipGetter returns the membership for (slug, email), or nil if none exists.
type SlugMembershipGetter interface {
	GetBySlugAndEmail(ctx context.Context, slug, email string) (*domain.Membership, error)
}

// RequireSlugAdmin resolves the caller's membership in slug and runs authz on it.
// An empty email is denied as not_a_member without a lookup. The returned error is
// non-nil only when the lookup or the authorizer fails; a denial is reported in the Decision.
func RequireSlugAdmin(ctx context.Context, getter SlugMembershipGetter, authz Authorizer, slug, email string) (*domain.Membership, Decision, error) {
	if email == "" {
		return nil, Deny(ReasonNotAMember), nil
	}
	m, err := getter.GetBySlugAndEmail(ctx, slug, email)
	if err != nil {
		return nil, Decision{}, err
	}
	d, err := authz.Decide(ctx, m)
	if err != nil {
		return m, Decision{}, err
	}
	return m, d, nil
}
