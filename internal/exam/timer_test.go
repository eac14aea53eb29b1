package exam

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTimerReplacesPreviousCountdown(t *testing.T) {
	timer := NewTimer(time.Millisecond)
	defer timer.Stop()

	first := newTestSession(t, time.Hour)
	second := newTestSession(t, time.Hour)

	timer.Start(context.Background(), func() bool { return !first.Tick() })
	waitFor(t, func() bool { return first.RemainingSeconds() < 3600 })

	timer.Start(context.Background(), func() bool { return !second.Tick() })
	frozen := first.RemainingSeconds()
	waitFor(t, func() bool { return second.RemainingSeconds() < 3590 })

	if got := first.RemainingSeconds(); got != frozen {
		t.Errorf("first session kept counting: %d -> %d", frozen, got)
	}
	if !timer.Running() {
		t.Error("expected the second countdown to be running")
	}
}

func TestTimerStopsWhenTickReturnsFalse(t *testing.T) {
	timer := NewTimer(time.Millisecond)
	s := newTestSession(t, 3*time.Second)

	timer.Start(context.Background(), func() bool { return !s.Tick() })
	waitFor(t, func() bool { return !timer.Running() })

	if s.State() != StateSubmitted || !s.TimedOut() {
		t.Errorf("state = %q timedOut = %v", s.State(), s.TimedOut())
	}
	if s.RemainingSeconds() != 0 {
		t.Errorf("remaining = %d, want 0", s.RemainingSeconds())
	}
	timer.Stop()
}

func TestTimerStopIsFinal(t *testing.T) {
	timer := NewTimer(time.Millisecond)
	var ticks atomic.Int64

	timer.Start(context.Background(), func() bool {
		ticks.Add(1)
		return true
	})
	waitFor(t, func() bool { return ticks.Load() > 0 })

	timer.Stop()
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != after {
		t.Errorf("ticks continued after Stop: %d -> %d", after, ticks.Load())
	}
	if timer.Running() {
		t.Error("timer still running after Stop")
	}
	timer.Stop()
}

func TestTimerContextCancel(t *testing.T) {
	timer := NewTimer(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	timer.Start(ctx, func() bool { return true })
	cancel()
	waitFor(t, func() bool { return !timer.Running() })
	timer.Stop()
}
