package telemetry

import (
	"context"
	"errors"

	"slug-portal/backend/internal/telemetry/domain"
)

// EventEmitter emits telemetry events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// Fanout emits every event to each emitter in order. Nil entries are skipped.
// One failing emitter does not stop the others; their errors are joined.
type Fanout []EventEmitter

// NewFanout returns a Fanout of the non-nil emitters.
func NewFanout(emitters ...EventEmitter) Fanout {
	out := make(Fanout, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (f Fanout) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
