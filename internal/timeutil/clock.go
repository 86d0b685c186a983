// Package timeutil provides a testable abstraction over the time operations
// the marker node suspends on.
package timeutil

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source the node, controller and replay code read and
// wait on.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// After delivers the clock's time once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Sleep blocks for d on the given clock, returning early with ctx.Err() if
// the context is cancelled first. A context that is already done never
// sleeps.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MockClock is a manually controlled clock for testing. Every wait requested
// through After completes immediately and advances the mock time by the
// requested duration, so loops built on Sleep run deterministically.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	hook   func(d time.Duration)
}

// NewMockClock returns a MockClock starting at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps the clock to t without recording a wait.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d without recording a wait.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// After records d, advances the clock by d and returns a channel that is
// already holding the new time. The hook installed with OnAfter runs before
// the channel is returned, on the caller's goroutine.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	fired, hook := c.now, c.hook
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}

	ch := make(chan time.Time, 1)
	ch <- fired
	return ch
}

// OnAfter installs a function that is called for every wait. Tests use it to
// change the world at a known suspension point.
func (c *MockClock) OnAfter(fn func(d time.Duration)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Sleeps returns a copy of every wait requested so far, in order.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// CountSleeps returns how many recorded waits were exactly d.
func (c *MockClock) CountSleeps(d time.Duration) int {
	n := 0
	for _, s := range c.Sleeps() {
		if s == d {
			n++
		}
	}
	return n
}
