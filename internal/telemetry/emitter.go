package telemetry

import (
	"context"

	"waste-marketplace/onboarding/internal/telemetry/domain"
)

// EventEmitter emits flow events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.FlowEvent) error
}

// Fanout emits each event to every non-nil emitter and returns the first error.
type Fanout []EventEmitter

// Emit sends event to all emitters, continuing past failures.
func (f Fanout) Emit(ctx context.Context, event *domain.FlowEvent) error {
	var first error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
