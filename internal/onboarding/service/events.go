package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"waste-marketplace/onboarding/internal/telemetry"
	telemetrydomain "waste-marketplace/onboarding/internal/telemetry/domain"
)

const meterName = "waste-marketplace/onboarding"

type flowMetrics struct {
	events   metric.Int64Counter
	requests metric.Int64Counter
}

func newFlowMetrics(logger *zap.Logger) *flowMetrics {
	meter := otel.Meter(meterName)
	events, err := meter.Int64Counter("onboarding.flow.events",
		metric.WithDescription("Onboarding flow events by type"))
	if err != nil {
		logger.Warn("metrics: flow events counter", zap.Error(err))
		events, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("onboarding.flow.events")
	}
	requests, err := meter.Int64Counter("onboarding.api.requests",
		metric.WithDescription("Backend calls by operation and outcome"))
	if err != nil {
		logger.Warn("metrics: api requests counter", zap.Error(err))
		requests, _ = noop.NewMeterProvider().Meter(meterName).Int64Counter("onboarding.api.requests")
	}
	return &flowMetrics{events: events, requests: requests}
}

func (m *flowMetrics) request(ctx context.Context, op, outcome string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}

// emitLocked sends a flow event in the background. Caller holds mu.
func (c *Controller) emitLocked(ctx context.Context, eventType string, meta map[string]string) {
	ev := &telemetrydomain.FlowEvent{
		ID:        uuid.New().String(),
		FlowID:    c.flowID,
		Type:      eventType,
		Step:      c.state.CurrentStep.String(),
		UserType:  c.state.DerivedUserType,
		UserID:    c.state.UserID,
		Metadata:  meta,
		CreatedAt: c.now().UTC(),
	}
	c.metrics.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
	c.logger.Debug("flow event", zap.String("event_type", eventType), zap.String("step", ev.Step))
	if c.events != nil {
		telemetry.EmitAsync(c.events, ctx, ev, c.logger)
	}
}

// mobileSuffix keeps the last four digits for logs and events.
func mobileSuffix(mobile string) string {
	if len(mobile) <= 4 {
		return mobile
	}
	return mobile[len(mobile)-4:]
}
