package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"waste-marketplace/onboarding/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed++
	return nil
}

func TestNewKafkaProducer_Disabled(t *testing.T) {
	p, err := NewKafkaProducer(nil, "topic", nil)
	if err != nil || p != nil {
		t.Fatalf("no brokers: got %v, %v; want nil, nil", p, err)
	}
	p, err = NewKafkaProducer([]string{"localhost:9092"}, "", nil)
	if err != nil || p != nil {
		t.Fatalf("no topic: got %v, %v; want nil, nil", p, err)
	}
	// nil producer is a valid no-op
	if err := p.Emit(context.Background(), &domain.FlowEvent{Type: "x"}); err != nil {
		t.Errorf("nil producer Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close: %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "onboarding-flow-events", nil)
	created := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	err := p.Emit(context.Background(), &domain.FlowEvent{
		ID:        "e1",
		FlowID:    "flow-1",
		Type:      domain.EventOTPSent,
		Step:      "otp_entry",
		Metadata:  map[string]string{"mobile_suffix": "3210"},
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "flow-1" {
		t.Errorf("key = %q, want flow-1", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != domain.EventOTPSent {
		t.Errorf("headers = %+v", msg.Headers)
	}
	var got eventPayload
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Type != domain.EventOTPSent || got.Step != "otp_entry" || got.Metadata["mobile_suffix"] != "3210" || !got.CreatedAt.Equal(created) {
		t.Errorf("payload = %+v", got)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newKafkaProducer(w, "t", nil)
	if err := p.Emit(context.Background(), &domain.FlowEvent{Type: "x"}); err == nil {
		t.Fatal("expected write error")
	}
	if err := p.Emit(context.Background(), nil); err != nil {
		t.Errorf("nil event: %v", err)
	}
}

func TestKafkaProducer_CloseTwice(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "t", nil)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if w.closed != 1 {
		t.Errorf("closed = %d, want 1", w.closed)
	}
}
