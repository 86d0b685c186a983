package timeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}

	start := time.Now()
	if now := c.Now(); now.Before(start) {
		t.Errorf("Now() = %v went backwards from %v", now, start)
	}
	if d := c.Since(start.Add(-2 * time.Second)); d < 2*time.Second {
		t.Errorf("Since() = %v, want >= 2s", d)
	}

	select {
	case <-c.After(5 * time.Millisecond):
	case <-time.After(2 * time.Second):
		t.Fatal("After(5ms) never fired")
	}
}

func TestMockClock_Now(t *testing.T) {
	pinned := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	if got := NewMockClock(pinned).Now(); !got.Equal(pinned) {
		t.Errorf("Now() = %v, want %v", got, pinned)
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	clock := NewMockClock(time.Time{})
	jump := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock.Set(jump)
	clock.Advance(90 * time.Second)

	if want := jump.Add(90 * time.Second); !clock.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", clock.Now(), want)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("Set/Advance recorded waits: %v", clock.Sleeps())
	}
	if got := clock.Since(jump); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
}

func TestMockClock_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	got := <-clock.After(5 * time.Second)
	if !got.Equal(start.Add(5 * time.Second)) {
		t.Errorf("After delivered %v, want %v", got, start.Add(5*time.Second))
	}
	<-clock.After(time.Second)

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 5*time.Second || sleeps[1] != time.Second {
		t.Errorf("Sleeps() = %v, want [5s 1s]", sleeps)
	}
	if n := clock.CountSleeps(time.Second); n != 1 {
		t.Errorf("CountSleeps(1s) = %d, want 1", n)
	}
}

func TestMockClock_OnAfter(t *testing.T) {
	clock := NewMockClock(time.Time{})
	var seen []time.Duration
	clock.OnAfter(func(d time.Duration) { seen = append(seen, d) })

	<-clock.After(time.Millisecond)
	<-clock.After(2 * time.Millisecond)

	if len(seen) != 2 || seen[1] != 2*time.Millisecond {
		t.Errorf("hook saw %v", seen)
	}
}

func TestSleep(t *testing.T) {
	clock := NewMockClock(time.Time{})

	if err := Sleep(context.Background(), clock, time.Second); err != nil {
		t.Fatalf("Sleep returned %v", err)
	}
	if clock.CountSleeps(time.Second) != 1 {
		t.Error("expected one recorded sleep")
	}
}

func TestSleep_CancelledContext(t *testing.T) {
	clock := NewMockClock(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, clock, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep returned %v, want context.Canceled", err)
	}
	if len(clock.Sleeps()) != 0 {
		t.Error("cancelled Sleep should not wait on the clock")
	}
}

func TestSleep_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Sleep(ctx, RealClock{}, time.Hour)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Sleep returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after cancel")
	}
}
