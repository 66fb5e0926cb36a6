package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"vawter.tech/stopper"
)

// Runner is a task queue drained by exactly one worker goroutine.
// Tasks submitted through Submit or SubmitWait execute strictly in
// submission order; no two tasks ever run concurrently. A task may
// itself submit further tasks, which append to the same ordered queue.
type Runner struct {
	ctx *stopper.Context
	log zerolog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake    chan struct{}
	drained chan struct{}
}

// NewRunner creates a Runner and starts its worker goroutine
func NewRunner(log zerolog.Logger) *Runner {
	r := &Runner{
		log:     log,
		wake:    make(chan struct{}, 1),
		drained: make(chan struct{}),
	}
	r.ctx = stopper.WithContext(context.Background())
	r.ctx.Go(r.work)
	return r
}

// Submit enqueues a task for asynchronous, in-order execution and
// returns immediately. It returns false once shutdown has begun.
func (r *Runner) Submit(task func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, task)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// SubmitWait enqueues a task and blocks until it has run or the timeout
// elapses. It reports whether the task completed in time. A
// non-positive timeout only succeeds if the task has already run by the
// time the submission returns.
func (r *Runner) SubmitWait(task func(), timeout time.Duration) bool {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		task()
	}
	if !r.Submit(wrapped) {
		return false
	}

	if timeout <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Shutdown stops accepting new submissions and waits up to timeout for
// already-queued tasks to drain. It is idempotent and reports whether
// the drain completed in time; on timeout the worker may still be
// draining in the background.
func (r *Runner) Shutdown(timeout time.Duration) bool {
	r.mu.Lock()
	already := r.closed
	r.closed = true
	r.mu.Unlock()

	if !already {
		r.ctx.Stop(timeout)
	}

	select {
	case <-r.drained:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}
	select {
	case <-r.drained:
		return true
	case <-time.After(timeout):
		return false
	}
}

// work is the single worker loop. On shutdown it drains whatever was
// queued before the gate closed, then exits.
func (r *Runner) work(sctx *stopper.Context) error {
	defer close(r.drained)

	for {
		if task := r.pop(); task != nil {
			r.run(task)
			continue
		}

		select {
		case <-r.wake:
		case <-sctx.Stopping():
			for task := r.pop(); task != nil; task = r.pop() {
				r.run(task)
			}
			return nil
		}
	}
}

func (r *Runner) pop() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return nil
	}
	task := r.queue[0]
	r.queue = r.queue[1:]
	return task
}

// run executes one task. A panicking task must not take down the
// worker; the queue outlives any single bad task.
func (r *Runner) run(task func()) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error().Interface("panic", v).Msg("task panicked")
		}
	}()
	task()
}
