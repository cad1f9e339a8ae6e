package domain

import "time"

// AuditLog is one recorded administrative event in a slug.
type AuditLog struct {
	ID        string
	Slug      string
	Actor     string // email of the caller; empty when anonymous
	Action    string
	Target    string // email or row id the action applied to
	IP        string
	Metadata  string
	CreatedAt time.Time
}
