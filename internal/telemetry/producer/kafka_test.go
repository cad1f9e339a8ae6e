package producer

import (
	"context"
	"testing"

	"slug-portal/backend/internal/telemetry/domain"
)

func TestNewKafkaProducer_Disabled(t *testing.T) {
	testCases := []struct {
		name    string
		brokers []string
		topic   string
	}{
		{"no brokers", nil, "portal-telemetry"},
		{"no topic", []string{"localhost:9092"}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewKafkaProducer(tc.brokers, tc.topic)
			if err != nil {
				t.Fatalf("NewKafkaProducer: %v", err)
			}
			if p != nil {
				t.Fatalf("producer = %+v, want nil", p)
			}
			if err := p.Emit(context.Background(), &domain.Event{EventType: "x"}); err != nil {
				t.Errorf("nil producer Emit: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Errorf("nil producer Close: %v", err)
			}
		})
	}
}

func TestNewKafkaProducer_Configured(t *testing.T) {
	p, err := NewKafkaProducer([]string{"localhost:9092"}, "portal-telemetry")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p == nil || p.topic != "portal-telemetry" {
		t.Fatalf("producer = %+v", p)
	}
	if err := p.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil): %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
