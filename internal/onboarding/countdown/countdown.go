// Package countdown runs cancellable repeating tasks such as the OTP resend countdown.
package countdown

import (
	"sync"
	"time"
)

// Scheduler starts repeating tasks. The returned cancel func stops the task; it is idempotent,
// never blocks, and may be called from inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs each task on its own goroutine driven by a time.Ticker.
type TickerScheduler struct{}

// NewTickerScheduler returns a Scheduler backed by time.Ticker.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Every calls fn every interval until cancel is called.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// a tick racing with cancel must not run fn
				select {
				case <-stop:
					return
				default:
				}
				fn()
			case <-stop:
				return
			}
		}
	}()
	return cancel
}

// Manual is a Scheduler whose tasks run only when Tick is called. Used by tests and by hosts
// that drive time themselves.
type Manual struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]func()
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{tasks: make(map[int]func())}
}

// Every registers fn; interval is ignored.
func (m *Manual) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.tasks[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.tasks, id)
	}
}

// Tick runs every active task once.
func (m *Manual) Tick() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.tasks))
	for _, fn := range m.tasks {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// TickN calls Tick n times.
func (m *Manual) TickN(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// Active returns the number of uncancelled tasks.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
