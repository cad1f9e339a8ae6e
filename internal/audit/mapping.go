package audit

import "slug-portal/backend/internal/membership/domain"

// Audit action names.
const (
	ActionMemberInvited   = "member_invited"
	ActionMemberPromoted  = "member_promoted"
	ActionMemberDemoted   = "member_demoted"
	ActionMemberPaused    = "member_paused"
	ActionMemberActivated = "member_activated"
	ActionMemberRemoved   = "member_removed"
	ActionAdminDenied     = "admin_denied"
)

// ActionForTransition returns the audit action recorded for a membership transition,
// or "member_updated" for a transition with no dedicated name.
func ActionForTransition(a domain.Action) string {
	switch a {
	case domain.ActionPromote:
		return ActionMemberPromoted
	case domain.ActionDemote:
		return ActionMemberDemoted
	case domain.ActionPause:
		return ActionMemberPaused
	case domain.ActionActivate:
		return ActionMemberActivated
	default:
		return "member_updated"
	}
}
