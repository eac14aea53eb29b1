package exam

import (
	"context"
	"sync"
	"time"
)

// Timer drives a single countdown. Starting it again replaces the running
// countdown, so two countdowns never overlap.
type Timer struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTimer creates a stopped timer ticking every interval.
func NewTimer(interval time.Duration) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{interval: interval}
}

// Start stops any running countdown, waits for it to exit, then calls tick
// every interval until tick returns false, ctx is done or Stop is called.
// tick runs on the timer goroutine and must not call Start or Stop.
func (t *Timer) Start(ctx context.Context, tick func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, done, tick)
}

func (t *Timer) run(ctx context.Context, done chan struct{}, tick func() bool) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !tick() {
				return
			}
		}
	}
}

// Stop cancels the running countdown and waits until it has exited. It is
// safe to call on a stopped timer.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}

// Running reports whether a countdown goroutine is alive.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
