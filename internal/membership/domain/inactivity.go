package domain

import "time"

// DefaultAutoPauseAfterDays is the inactivity threshold used when none is configured.
const DefaultAutoPauseAfterDays = 90

// Inactivity is the read-time annotation derived from a membership's last
// session and status. It is advisory: nothing here is persisted.
type Inactivity struct {
	DaysSinceLastSession *int // nil when the member never stamped a session
	AutoPauseAfterDays   int
	Inactive             bool
	WillBePausedSoon     bool
}

// Annotate derives the inactivity annotation for m at now with the given threshold in days.
func Annotate(m Membership, now time.Time, autoPauseAfterDays int) Inactivity {
	out := Inactivity{AutoPauseAfterDays: autoPauseAfterDays}
	overThreshold := true
	if m.LastSessionAt != nil {
		days := daysBetween(now, *m.LastSessionAt)
		out.DaysSinceLastSession = &days
		overThreshold = days >= autoPauseAfterDays
	}
	paused := m.Status == StatusPaused
	out.Inactive = overThreshold || paused
	out.WillBePausedSoon = !paused && overThreshold
	return out
}

// daysBetween returns floor((a-b) / 24h).
func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
