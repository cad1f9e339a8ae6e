package domain

import (
	"encoding/json"
	"testing"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent("acme", "bob@x.com", EventMemberUpdated, SourceEngine, map[string]any{"action": "pause", "id": 7})
	if ev.CreatedAt.IsZero() || ev.CreatedAt.Location().String() != "UTC" {
		t.Errorf("CreatedAt = %v, want UTC now", ev.CreatedAt)
	}
	var meta map[string]any
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["action"] != "pause" {
		t.Errorf("metadata action = %v", meta["action"])
	}
}

func TestNewEvent_NoMetadata(t *testing.T) {
	ev := NewEvent("", "", EventHTTPRequest, SourceHTTP, nil)
	if ev.Metadata != nil {
		t.Errorf("Metadata = %s, want nil", ev.Metadata)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, k := range []string{"slug", "email", "metadata"} {
		if _, ok := raw[k]; ok {
			t.Errorf("empty %s should be omitted", k)
		}
	}
	if raw["event_type"] != EventHTTPRequest {
		t.Errorf("event_type = %v", raw["event_type"])
	}
}
