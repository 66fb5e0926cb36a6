package watchdog

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Supervisor keeps exactly one managed service instance alive. All
// lifecycle work runs on a single-worker Runner, so the service handle
// and the availability checks are never touched concurrently.
//
// Supervisor is a thin handle around the supervision core. Disposal is
// armed as a finalizer on the handle: a Supervisor dropped without an
// explicit Dispose still stops its timer and task queue instead of
// leaking goroutines.
type Supervisor struct {
	c *core
}

// core carries the supervision state. It is split from the exported
// handle so the timer's self-rescheduling monitor callback does not
// keep the handle reachable and defeat the disposal finalizer.
type core struct {
	builder Builder
	runner  *Runner
	timer   *Timer
	seq     *Sequencer
	gate    *Gate

	interval    time.Duration
	stopTimeout time.Duration

	log     zerolog.Logger
	metrics *Metrics

	// svc is the service handle. Non-nil means the service is believed
	// running. Read and written only on the Runner worker.
	svc Service

	disposeOnce sync.Once
}

// New creates a Supervisor for the service produced by builder. The
// monitor loop does not run until HostStart.
func New(builder Builder, opts ...Option) (*Supervisor, error) {
	if builder == nil {
		return nil, ErrNilBuilder
	}

	c := &core{
		builder:     builder,
		gate:        &Gate{},
		interval:    DefaultMonitorInterval,
		stopTimeout: DefaultShutdownTimeout,
		log:         zerolog.Nop(),
		metrics:     NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.runner = NewRunner(c.log)
	c.timer = NewTimer()
	c.seq = NewSequencer(c.log)

	s := &Supervisor{c: c}
	runtime.SetFinalizer(s, func(s *Supervisor) {
		s.c.dispose()
	})
	return s, nil
}

// HostStart begins supervision by submitting the first monitor tick.
// It returns immediately; bringing the service up is asynchronous from
// the host's point of view. It reports whether the tick was accepted.
func (s *Supervisor) HostStart() bool {
	defer runtime.KeepAlive(s)
	return s.c.hostStart()
}

// HostStop submits a stop task and blocks until it has run or the
// shutdown timeout elapses. It returns true iff, after the wait, no
// service handle remains. On timeout the stop sequence may still be
// running in the background.
func (s *Supervisor) HostStop() bool {
	defer runtime.KeepAlive(s)
	return s.c.hostStop()
}

// Restart submits a restart task: the replacement instance is created
// and started before the old one is torn down.
func (s *Supervisor) Restart() {
	defer runtime.KeepAlive(s)
	s.c.submitRestart()
}

// ExternalStopRequest is invoked by the managed service itself or by
// the host environment to request a stop. It shares the stop code path
// with HostStop's task.
func (s *Supervisor) ExternalStopRequest(reason string) {
	defer runtime.KeepAlive(s)
	s.c.externalStopRequest(reason)
}

// AddCheck registers an availability check. Registration is funneled
// through the task queue to keep the set consistent with in-flight
// reads.
func (s *Supervisor) AddCheck(chk Check) {
	defer runtime.KeepAlive(s)
	s.c.addCheck(chk)
}

// RequestAdditionalTime acknowledges a host request for more shutdown
// time. The supervisor manages its own timing, so this is a no-op
// beyond the acknowledgement.
func (s *Supervisor) RequestAdditionalTime(d time.Duration) {
	defer runtime.KeepAlive(s)
	s.c.log.Debug().Dur("granted", d).Msg("additional time acknowledged")
}

// Dispose stops the timer, then shuts down the task queue, each bounded
// by the shutdown timeout. It is idempotent; after Dispose no further
// submitted task executes.
func (s *Supervisor) Dispose() {
	runtime.SetFinalizer(s, nil)
	s.c.dispose()
}

func (c *core) hostStart() bool {
	c.log.Info().Msg("supervision starting")
	return c.runner.Submit(c.monitor)
}

func (c *core) hostStop() bool {
	stopped := false
	completed := c.runner.SubmitWait(func() {
		c.stop()
		stopped = c.svc == nil
	}, c.stopTimeout)
	if !completed {
		c.log.Warn().Dur("timeout", c.stopTimeout).Msg("stop did not complete within shutdown timeout")
		return false
	}
	return stopped
}

func (c *core) externalStopRequest(reason string) {
	c.log.Info().Str("reason", reason).Msg("external stop requested")
	c.runner.Submit(c.stop)
}

func (c *core) submitRestart() {
	c.runner.Submit(c.restart)
}

func (c *core) addCheck(chk Check) {
	c.runner.Submit(func() {
		c.gate.Add(chk)
	})
}

// monitor is one health-check tick. Rescheduling is registered as a
// deferred cleanup before the tick body runs, so a failure inside the
// tick cannot silently end monitoring; the recover defer keeps a
// panicking tick from unwinding past it.
func (c *core) monitor() {
	defer c.timer.Schedule(c.interval, c.runner, c.monitor)
	defer func() {
		if v := recover(); v != nil {
			c.log.Error().Interface("panic", v).Msg("monitor tick panicked")
		}
	}()

	c.metrics.MonitorTicks.Inc()
	if c.svc == nil {
		c.runner.Submit(c.start)
	}
}

func (c *core) start() {
	if c.svc != nil {
		c.log.Debug().Msg("service already running, start skipped")
		return
	}

	if ok, reason := c.gate.CanStart(); !ok {
		c.metrics.StartDenials.Inc()
		c.log.Info().Str("reason", reason).Msg("start denied by availability check")
		return
	}

	sc := &StepContext{Builder: c.builder}
	seq := NewSequence(sc, StepCreate, StepStart)
	if !c.seq.Execute(context.Background(), seq) {
		c.metrics.StartFailures.Inc()
		return
	}

	c.svc = sc.Service
	c.metrics.Starts.Inc()
	c.log.Info().Msg("service started")
}

// stop always runs the full {Stop, Unload} sequence, even with no
// handle; the handlers pass through nil gracefully. This mirrors the
// unconditional-unload behavior of start's counterpart rather than
// short-circuiting.
func (c *core) stop() {
	sc := &StepContext{Service: c.svc}
	seq := NewSequence(sc, StepStop, StepUnload)
	if !c.seq.Execute(context.Background(), seq) {
		// Handle retained: a stop that failed midway leaves the
		// instance for diagnostics and a later attempt.
		c.metrics.StopFailures.Inc()
		return
	}

	if c.svc != nil {
		c.metrics.Stops.Inc()
		c.log.Info().Msg("service stopped")
	}
	c.svc = nil
}

// restart builds one sequence over two separate step contexts: the
// replacement is created and started before the old instance is torn
// down, minimizing downtime. Create failing leaves the old instance
// untouched and running.
func (c *core) restart() {
	fresh := &StepContext{Builder: c.builder}
	old := &StepContext{Service: c.svc}

	seq := NewSequence(fresh, StepCreate)
	seq.Bind(old, StepStop)
	seq.Bind(fresh, StepStart)
	seq.Bind(old, StepUnload)

	if !c.seq.Execute(context.Background(), seq) {
		c.metrics.StartFailures.Inc()
		c.log.Warn().Msg("restart sequence halted, handle unchanged")
		return
	}

	c.svc = fresh.Service
	c.metrics.Restarts.Inc()
	c.log.Info().Msg("service restarted")
}

func (c *core) dispose() {
	c.disposeOnce.Do(func() {
		c.timer.Stop(c.stopTimeout)
		c.runner.Shutdown(c.stopTimeout)
		c.log.Info().Msg("supervisor disposed")
	})
}
