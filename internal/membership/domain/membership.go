package domain

import (
	"strings"
	"time"
)

// Membership links an email to a slug (tenant) with a role and a status.
// (Slug, Email) is unique; ID addresses a row inside one slug's scope.
type Membership struct {
	ID            int64
	Slug          string
	Email         string
	Role          Role
	Status        Status
	LastSessionAt *time.Time // nil until the first stamp
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole returns RoleAdmin only for the exact token "admin"; anything else is RoleUser.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Action is an administrative transition on a single membership row.
type Action string

const (
	ActionPromote  Action = "promote"
	ActionDemote   Action = "demote"
	ActionPause    Action = "pause"
	ActionActivate Action = "activate"
)

// ParseAction returns the action for s and false if s is not a known transition.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionPromote, ActionDemote, ActionPause, ActionActivate:
		return a, true
	}
	return "", false
}

// Apply returns a copy of m with the transition applied. Role and status are
// independent two-state machines; applying a transition to a row already in
// the target state leaves it unchanged.
func (a Action) Apply(m Membership) Membership {
	switch a {
	case ActionPromote:
		m.Role = RoleAdmin
	case ActionDemote:
		m.Role = RoleUser
	case ActionPause:
		m.Status = StatusPaused
	case ActionActivate:
		m.Status = StatusActive
	}
	return m
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsActive reports whether the persisted status is active.
func (m *Membership) IsActive() bool {
	return m != nil && m.Status == StatusActive
}

// IsAdmin reports whether the persisted role is admin.
func (m *Membership) IsAdmin() bool {
	return m != nil && m.Role == RoleAdmin
}
