// Package clock abstracts the current time so date-dependent logic can be tested.
package clock

import (
	"sync"
	"time"
)

// DateLayout is the calendar-date format used for study dates.
const DateLayout = "2006-01-02"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real returns the wall clock in the local time zone.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

// Fixed is a manually advanced clock.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Date formats t as a calendar date in t's own location.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}
