// Package testutil holds deterministic clocks, recorders and golden-file
// helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the starting instant of every StepClock.
var Epoch = time.Date(2024, time.November, 2, 12, 0, 0, 0, time.UTC)

// StepClock is a fake wall clock for lifecycle tests.
//
// Sleep never blocks; it advances the clock by the requested duration so
// dwell periods show up in timestamps without slowing tests down. Two runs
// that sleep the same durations observe byte-identical timestamps.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
	naps  int
}

// NewStepClock creates a clock at Epoch.
func NewStepClock() *StepClock {
	return &StepClock{now: Epoch}
}

// Now returns the current fake time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d without blocking.
func (c *StepClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept += d
	c.naps++
}

// Slept returns the total duration passed to Sleep and the number of calls.
func (c *StepClock) Slept() (time.Duration, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept, c.naps
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
	c.slept = 0
	c.naps = 0
}
