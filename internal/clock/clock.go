// Package clock is the single time authority for attempt windows and deadlines.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current server time.
type Clock func() time.Time

// Real is the wall clock in UTC.
func Real() time.Time { return time.Now().UTC() }

// Fake is a manually driven clock for tests and replays.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{now: t.UTC()} }

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t.UTC()
	f.mu.Unlock()
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Clock adapts the fake to the Clock type.
func (f *Fake) Clock() Clock { return f.Now }
