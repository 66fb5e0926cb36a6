package watchdog

import (
	"context"
	"sync"
	"time"

	"vawter.tech/stopper"
)

// Timer arranges for callbacks to run on a Runner after a delay. It
// does not repeat on its own; a recurring interval is formed by the
// callback rescheduling itself at its own end. Timer bookkeeping runs
// on its own goroutines, but callbacks are always submitted back onto
// the Runner before they touch shared state.
type Timer struct {
	ctx *stopper.Context

	mu      sync.Mutex
	pending *time.Timer
	stopped bool
}

// NewTimer creates a Timer
func NewTimer() *Timer {
	return &Timer{ctx: stopper.WithContext(context.Background())}
}

// Schedule submits fn to r once, after delay. Only one fire is pending
// at a time; scheduling again replaces an unfired one. It returns false
// after Stop.
func (t *Timer) Schedule(delay time.Duration, r *Runner, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return false
	}
	if t.pending != nil {
		t.pending.Stop()
	}

	tm := time.NewTimer(delay)
	t.pending = tm

	t.ctx.Go(func(sctx *stopper.Context) error {
		defer tm.Stop()
		select {
		case <-tm.C:
			r.Submit(fn)
		case <-sctx.Stopping():
		}
		return nil
	})
	return true
}

// Stop cancels any pending fire and blocks up to timeout for in-flight
// scheduling goroutines to finish. It is idempotent and reports whether
// everything wound down in time.
func (t *Timer) Stop(timeout time.Duration) bool {
	t.mu.Lock()
	already := t.stopped
	t.stopped = true
	if t.pending != nil {
		t.pending.Stop()
	}
	t.mu.Unlock()

	if !already {
		t.ctx.Stop(timeout)
	}

	done := make(chan struct{})
	go func() {
		_ = t.ctx.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
