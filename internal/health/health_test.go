package health

import (
	"context"
	"errors"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck_NilDependencies(t *testing.T) {
	r := NewChecker(nil, nil).Check(context.Background())
	if r.Status != StatusServing {
		t.Errorf("status = %v, want SERVING", r.Status)
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	r := NewChecker(&mockPinger{}, &mockPolicyChecker{}).Check(context.Background())
	if r.Status != StatusServing || r.Storage != nil || r.Policy != nil {
		t.Errorf("report = %+v, want SERVING", r)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	r := NewChecker(&mockPinger{pingErr: errors.New("connection refused")}, &mockPolicyChecker{}).Check(context.Background())
	if r.Status != StatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", r.Status)
	}
	if r.Storage == nil {
		t.Error("Storage error should be reported")
	}
}

func TestCheck_PolicyFailure(t *testing.T) {
	r := NewChecker(&mockPinger{}, &mockPolicyChecker{healthErr: errors.New("undefined")}).Check(context.Background())
	if r.Status != StatusNotServing || r.Policy == nil {
		t.Errorf("report = %+v, want NOT_SERVING with policy error", r)
	}
}

func TestCheck_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewChecker(ctxPinger{}, nil).Check(ctx)
	if r.Status != StatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING for a cancelled context", r.Status)
	}
}

type ctxPinger struct{}

func (ctxPinger) PingContext(ctx context.Context) error { return ctx.Err() }
