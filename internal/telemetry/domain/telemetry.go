package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the portal.
const (
	EventSessionStamped = "session_stamped"
	EventMemberInvited  = "member_invited"
	EventMemberUpdated  = "member_updated"
	EventMemberRemoved  = "member_removed"
	EventAdminDenied    = "admin_denied"
	EventHTTPRequest    = "http_request"
)

// Sources.
const (
	SourceEngine = "membership_engine"
	SourceHTTP   = "http"
)

// Event is one telemetry record (slug-scoped, optional email). It is the Kafka wire format.
type Event struct {
	Slug      string          `json:"slug,omitempty"`
	Email     string          `json:"email,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent returns an event stamped with the current UTC time. metadata is marshaled to JSON;
// a nil or unmarshalable metadata leaves the field empty.
func NewEvent(slug, email, eventType, source string, metadata map[string]any) *Event {
	ev := &Event{
		Slug:      slug,
		Email:     email,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			ev.Metadata = b
		}
	}
	return ev
}
