package clock

import (
	"sync"
	"time"
)

// Clock abstracts "now" so TTL logic can be tested without sleeping.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Manual is a hand-advanced clock for tests.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

// NewManual starts a manual clock at the given instant.
func NewManual(start time.Time) *Manual {
	return &Manual{t: start.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
}
