package timing

import (
	"sync"
	"time"
)

// Source supplies the instants a Timer measures between.
type Source interface {
	Now() time.Time
}

// SystemSource reads the process monotonic clock.
type SystemSource struct{}

func (SystemSource) Now() time.Time {
	return time.Now()
}

// ManualSource is a controllable Source for tests. Unlike the system clock it
// can be moved backwards, which is how counter regressions are reproduced.
type ManualSource struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualSource returns a source frozen at start.
func NewManualSource(start time.Time) *ManualSource {
	return &ManualSource{now: start}
}

func (m *ManualSource) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the source by d, which may be negative.
func (m *ManualSource) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set jumps the source to t.
func (m *ManualSource) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
