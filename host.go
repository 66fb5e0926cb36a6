package watchdog

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Create variable signal.Notify function so we can swap it in tests
var signalNotify = signal.Notify

// RunHost drives a Supervisor as a console host: it starts supervision,
// blocks until SIGINT/SIGTERM arrives or ctx is done, then performs the
// blocking host stop. The return value is HostStop's result. How the
// process registers as an OS service is the caller's concern; RunHost
// only covers the plain-console case.
func RunHost(ctx context.Context, s *Supervisor) bool {
	if !s.HostStart() {
		return false
	}

	sig := make(chan os.Signal, 1)
	signalNotify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
	case <-ctx.Done():
	}

	return s.HostStop()
}
