// Package producer publishes onboarding flow events to a message broker.
package producer

import (
	"context"

	"waste-marketplace/onboarding/internal/telemetry/domain"
)

// Producer emits flow events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.FlowEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
