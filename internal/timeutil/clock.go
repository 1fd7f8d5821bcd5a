// Package timeutil stamps runs and times their processing. Tests swap in
// MockClock so run documents are reproducible.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source used for run timestamps and durations.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock only moves when told to. A non-zero Step advances it on every
// Now call, which lets a test observe a measurable run duration.
type MockClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewMockClock returns a MockClock stopped at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Set jumps to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Stopwatch measures one run against a Clock.
type Stopwatch struct {
	clock   Clock
	started time.Time
}

// StartStopwatch reads clock once and returns a running stopwatch.
func StartStopwatch(clock Clock) Stopwatch {
	return Stopwatch{clock: clock, started: clock.Now()}
}

// Started is the time the stopwatch was started.
func (s Stopwatch) Started() time.Time { return s.started }

// ElapsedMs is the time since start in milliseconds, at microsecond
// resolution.
func (s Stopwatch) ElapsedMs() float64 {
	return float64(s.clock.Since(s.started).Microseconds()) / 1000
}
