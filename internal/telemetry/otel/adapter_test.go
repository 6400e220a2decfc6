package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"waste-marketplace/onboarding/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), &domain.FlowEvent{Type: domain.EventOTPSent}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func attributes(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestEmit_AttributeMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	created := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	event := &domain.FlowEvent{
		ID:        "e1",
		FlowID:    "f1",
		Type:      domain.EventOTPVerified,
		Step:      "otp_entry",
		UserType:  "buyer_individual",
		UserID:    "u1",
		Metadata:  map[string]string{"profile_complete": "false"},
		CreatedAt: created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec
	if got := rec.Body().AsString(); got != domain.EventOTPVerified {
		t.Errorf("body = %q, want %q", got, domain.EventOTPVerified)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	want := map[string]string{
		"event_id": "e1", "flow_id": "f1", "event_type": domain.EventOTPVerified,
		"step": "otp_entry", "user_type": "buyer_individual", "user_id": "u1",
		"meta.profile_complete": "false",
	}
	attrs := attributes(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_EmptyFieldsOmitted(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &domain.FlowEvent{Type: domain.EventStepChanged}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	attrs := attributes(cap.rec)
	if _, ok := attrs["user_id"]; ok {
		t.Error("empty user_id should not be recorded")
	}
	if attrs["event_type"] != domain.EventStepChanged {
		t.Errorf("event_type = %q", attrs["event_type"])
	}
	if cap.rec.Timestamp().Before(before) {
		t.Errorf("timestamp = %v, want now when CreatedAt is zero", cap.rec.Timestamp())
	}
}
