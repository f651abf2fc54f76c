package clock

import (
	"sync"
	"time"
)

// FakeClock only moves when told to.
type FakeClock struct {
	mu sync.RWMutex
	at time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{at: start.UTC()}
}

func (f *FakeClock) Now() time.Time {
	f.mu.RLock()
	at := f.at
	f.mu.RUnlock()
	return at
}

// Advance moves the clock forward by d and returns the new time.
func (f *FakeClock) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at = f.at.Add(d)
	return f.at
}
