package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe wall clock for tests that advances
// by a fixed tick on every reading.
//
// It stands in for time.Now wherever a timestamp is persisted (for example
// store.WithClock), so archived rows carry the same created_at on every
// run. It can be reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	tick  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock whose first reading is Epoch and
// which advances one second per reading.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockWithTick(time.Second)
}

// NewDeterministicClockWithTick creates a clock advancing by tick per
// reading. A zero tick yields a frozen clock.
func NewDeterministicClockWithTick(tick time.Duration) *DeterministicClock {
	return &DeterministicClock{tick: tick}
}

// Now returns the current reading and advances the clock.
//
// Monotonic: readings never decrease.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.calls) * c.tick)
	c.calls++
	return t
}

// Calls returns how many readings have been taken.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock. After Reset(), the next call to Now() returns
// Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
