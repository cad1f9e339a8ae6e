package domain

import "testing"

func TestParseRole(t *testing.T) {
	testCases := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"ADMIN", RoleUser},
		{"owner", RoleUser},
	}
	for _, tc := range testCases {
		if got := ParseRole(tc.in); got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"promote", "demote", "pause", "activate"} {
		a, ok := ParseAction(s)
		if !ok || string(a) != s {
			t.Errorf("ParseAction(%q) = %q, %v", s, a, ok)
		}
	}
	for _, s := range []string{"", "delete", "Promote", "suspend"} {
		if _, ok := ParseAction(s); ok {
			t.Errorf("ParseAction(%q) should not be valid", s)
		}
	}
}

func TestAction_Apply(t *testing.T) {
	base := Membership{ID: 7, Slug: "acme", Email: "bob@x.com", Role: RoleUser, Status: StatusActive}
	testCases := []struct {
		name       string
		start      Membership
		action     Action
		wantRole   Role
		wantStatus Status
	}{
		{"promote user", base, ActionPromote, RoleAdmin, StatusActive},
		{"promote admin is no-op", withRole(base, RoleAdmin), ActionPromote, RoleAdmin, StatusActive},
		{"demote admin", withRole(base, RoleAdmin), ActionDemote, RoleUser, StatusActive},
		{"demote user is no-op", base, ActionDemote, RoleUser, StatusActive},
		{"pause active", base, ActionPause, RoleUser, StatusPaused},
		{"pause paused is no-op", withStatus(base, StatusPaused), ActionPause, RoleUser, StatusPaused},
		{"activate paused", withStatus(base, StatusPaused), ActionActivate, RoleUser, StatusActive},
		{"activate active is no-op", base, ActionActivate, RoleUser, StatusActive},
		{"pause keeps admin role", withRole(base, RoleAdmin), ActionPause, RoleAdmin, StatusPaused},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.action.Apply(tc.start)
			if got.Role != tc.wantRole {
				t.Errorf("Role = %q, want %q", got.Role, tc.wantRole)
			}
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tc.wantStatus)
			}
			if got.ID != tc.start.ID || got.Slug != tc.start.Slug || got.Email != tc.start.Email {
				t.Error("Apply must not change identity fields")
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Bob@X.com \t"); got != "bob@x.com" {
		t.Errorf("NormalizeEmail = %q, want %q", got, "bob@x.com")
	}
	if got := NormalizeEmail("   "); got != "" {
		t.Errorf("NormalizeEmail(blank) = %q, want empty", got)
	}
}

func TestMembership_IsActiveIsAdmin(t *testing.T) {
	testCases := []struct {
		name       string
		m          *Membership
		wantActive bool
		wantAdmin  bool
	}{
		{"nil", nil, false, false},
		{"active admin", &Membership{Role: RoleAdmin, Status: StatusActive}, true, true},
		{"paused admin", &Membership{Role: RoleAdmin, Status: StatusPaused}, false, true},
		{"active user", &Membership{Role: RoleUser, Status: StatusActive}, true, false},
		{"unknown status", &Membership{Role: RoleAdmin, Status: "suspended"}, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.IsActive(); got != tc.wantActive {
				t.Errorf("IsActive() = %v, want %v", got, tc.wantActive)
			}
			if got := tc.m.IsAdmin(); got != tc.wantAdmin {
				t.Errorf("IsAdmin() = %v, want %v", got, tc.wantAdmin)
			}
		})
	}
}

func withRole(m Membership, r Role) Membership     { m.Role = r; return m }
func withStatus(m Membership, s Status) Membership { m.Status = s; return m }
