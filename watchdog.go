package watchdog

import (
	"time"

	"github.com/rs/zerolog"
)

// Supervision timing constants
const (
	// DefaultMonitorInterval is the default delay between monitor ticks
	DefaultMonitorInterval = 10 * time.Second

	// DefaultShutdownTimeout is the default bound on the blocking stop call
	// and on disposal of the timer and task queue
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultStopWait is the default grace period a ProcessService allows
	// between the stop signal and SIGKILL
	DefaultStopWait = 5 * time.Second

	// DefaultWatchGrace is the grace period granted to background watcher
	// goroutines when they are stopped
	DefaultWatchGrace = 100 * time.Millisecond
)

// File modes for generated service directories
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644

	// ExecMode is the default mode for executable scripts
	ExecMode = 0o755
)

// Option configures a Supervisor
type Option func(*core)

// WithMonitorInterval sets the delay between monitor ticks
func WithMonitorInterval(d time.Duration) Option {
	return func(c *core) {
		c.interval = d
	}
}

// WithShutdownTimeout sets the bound on the blocking stop call and on
// disposal waits
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *core) {
		c.stopTimeout = d
	}
}

// WithLogger sets the structured logger used for diagnostics.
// The default logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *core) {
		c.log = log
	}
}

// WithMetrics sets the metrics collectors updated by the Supervisor.
// Register them with a prometheus.Registerer to expose them.
func WithMetrics(m *Metrics) Option {
	return func(c *core) {
		c.metrics = m
	}
}

// WithCheck appends an availability check before the Supervisor starts.
// Checks added after construction must go through AddCheck so mutation
// stays on the task queue.
func WithCheck(chk Check) Option {
	return func(c *core) {
		c.gate.Add(chk)
	}
}
