package clock

import (
	"sync"
	"time"
)

// Clock provides wall-clock time. Implementations may correct for
// system clock drift (e.g. via NTP).
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by time.Now().
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Fixed is a manually driven Clock.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Fixed clock reading t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
