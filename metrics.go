package watchdog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors a Supervisor updates. Collectors are
// created unregistered so a library user decides where (and whether)
// they are exposed.
type Metrics struct {
	// MonitorTicks counts monitor invocations
	MonitorTicks prometheus.Counter
	// Starts counts successful start sequences
	Starts prometheus.Counter
	// StartFailures counts halted start sequences
	StartFailures prometheus.Counter
	// StartDenials counts starts refused by an availability check
	StartDenials prometheus.Counter
	// Stops counts successful stop sequences
	Stops prometheus.Counter
	// StopFailures counts halted stop sequences
	StopFailures prometheus.Counter
	// Restarts counts successful restart sequences
	Restarts prometheus.Counter
}

// NewMetrics creates the collector set
func NewMetrics() *Metrics {
	return &Metrics{
		MonitorTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_monitor_ticks_total",
			Help: "Monitor invocations, including ticks that found the service running",
		}),
		Starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_starts_total",
			Help: "Start sequences that completed and produced a service handle",
		}),
		StartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_start_failures_total",
			Help: "Start sequences halted by a failing step",
		}),
		StartDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_start_denials_total",
			Help: "Start attempts refused by an availability check",
		}),
		Stops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_stops_total",
			Help: "Stop sequences that completed and cleared the service handle",
		}),
		StopFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_stop_failures_total",
			Help: "Stop sequences halted by a failing step",
		}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_restarts_total",
			Help: "Restart sequences that completed and replaced the service handle",
		}),
	}
}

// MustRegister registers every collector with reg
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MonitorTicks,
		m.Starts,
		m.StartFailures,
		m.StartDenials,
		m.Stops,
		m.StopFailures,
		m.Restarts,
	)
}
