package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"slug-portal/backend/internal/membership/domain"
	"slug-portal/backend/internal/platform/rbac"
)

const decisionQuery = "data.portal.membership"

// DefaultRegoPolicy encodes the admin ladder. Exactly one reason rule can match for a
// given input, so the first failing guard of the ladder is the one reported.
const DefaultRegoPolicy = `package portal.membership

default allow := false

default reason := ""

reason := "not_a_member" if {
	not input.found
}

reason := "membership_paused" if {
	input.found
	input.membership.status != "active"
}

reason := "not_admin" if {
	input.found
	input.membership.status == "active"
	input.membership.role != "admin"
}

allow if {
	input.found
	input.membership.status == "active"
	input.membership.role == "admin"
}
`

// OPAAuthorizer decides admin checks by evaluating a Rego policy in process.
// When evaluation fails it logs and falls back to the built-in ladder.
type OPAAuthorizer struct {
	query rego.PreparedEvalQuery
}

var _ rbac.Authorizer = (*OPAAuthorizer)(nil)

// NewOPAAuthorizer compiles policy (DefaultRegoPolicy when empty) and prepares the decision query.
func NewOPAAuthorizer(ctx context.Context, policy string) (*OPAAuthorizer, error) {
	if policy == "" {
		policy = DefaultRegoPolicy
	}
	q, err := prepare(ctx, policy)
	if err != nil {
		return nil, err
	}
	return &OPAAuthorizer{query: q}, nil
}

func prepare(ctx context.Context, policy string) (rego.PreparedEvalQuery, error) {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": policy})
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(decisionQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return rego.PreparedEvalQuery{}, fmt.Errorf("prepare policy: %w", err)
	}
	return q, nil
}

// Decide evaluates the policy for m (nil when the caller has no row in the slug).
func (a *OPAAuthorizer) Decide(ctx context.Context, m *domain.Membership) (rbac.Decision, error) {
	d, err := a.evaluate(ctx, m)
	if err != nil {
		log.Printf("policy: evaluation failed: %v, using built-in ladder", err)
		return rbac.Evaluate(m), nil
	}
	return d, nil
}

// HealthCheck verifies that the prepared policy evaluates for a minimal input.
// Does not touch the database. Returns nil on success.
func (a *OPAAuthorizer) HealthCheck(ctx context.Context) error {
	if _, err := a.evaluate(ctx, nil); err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	return nil
}

func (a *OPAAuthorizer) evaluate(ctx context.Context, m *domain.Membership) (rbac.Decision, error) {
	rs, err := a.query.Eval(ctx, rego.EvalInput(buildInput(m)))
	if err != nil {
		return rbac.Decision{}, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return rbac.Decision{}, fmt.Errorf("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return rbac.Decision{}, fmt.Errorf("policy result has type %T", rs[0].Expressions[0].Value)
	}
	allow, _ := doc["allow"].(bool)
	if allow {
		return rbac.Allow, nil
	}
	reason, _ := doc["reason"].(string)
	switch r := rbac.Reason(reason); r {
	case rbac.ReasonNotAMember, rbac.ReasonMembershipPaused, rbac.ReasonNotAdmin:
		return rbac.Deny(r), nil
	default:
		return rbac.Decision{}, fmt.Errorf("policy denied with unknown reason %q", reason)
	}
}

func buildInput(m *domain.Membership) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"found": false}
	}
	return map[string]interface{}{
		"found": true,
		"membership": map[string]interface{}{
			"slug":   m.Slug,
			"email":  m.Email,
			"role":   string(m.Role),
			"status": string(m.Status),
		},
	}
}
