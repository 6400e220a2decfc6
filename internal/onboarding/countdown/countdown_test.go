package countdown

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerScheduler_RunsUntilCancelled(t *testing.T) {
	var n atomic.Int32
	cancel := NewTickerScheduler().Every(time.Millisecond, func() { n.Add(1) })

	deadline := time.Now().Add(time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() < 3 {
		t.Fatalf("ticks = %d, want >= 3", n.Load())
	}
	cancel()
	cancel() // idempotent

	time.Sleep(10 * time.Millisecond)
	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("ticks kept running after cancel: %d -> %d", after, n.Load())
	}
}

func TestTickerScheduler_CancelFromInsideTask(t *testing.T) {
	var n atomic.Int32
	ready := make(chan func(), 1)
	done := make(chan struct{})
	ready <- NewTickerScheduler().Every(time.Millisecond, func() {
		if n.Add(1) == 1 {
			cancel := <-ready
			cancel()
			close(done)
		}
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
	time.Sleep(20 * time.Millisecond)
	if n.Load() != 1 {
		t.Errorf("ticks = %d, want 1", n.Load())
	}
}

func TestManual(t *testing.T) {
	m := NewManual()
	var a, b int
	cancelA := m.Every(time.Second, func() { a++ })
	m.Every(time.Second, func() { b++ })

	m.TickN(2)
	if a != 2 || b != 2 {
		t.Fatalf("a=%d b=%d, want 2 2", a, b)
	}
	cancelA()
	cancelA()
	m.Tick()
	if a != 2 || b != 3 {
		t.Errorf("a=%d b=%d, want 2 3", a, b)
	}
	if m.Active() != 1 {
		t.Errorf("Active = %d, want 1", m.Active())
	}
}
