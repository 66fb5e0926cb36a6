// Package watchdog keeps exactly one managed service instance alive.
//
// The core type is Supervisor, which owns a single service handle and
// drives it through a periodic monitor loop: if the service is not
// running, the supervisor creates and starts a fresh instance; if the
// host asks for a stop, the supervisor tears the instance down; a
// restart brings up the replacement before the old instance is
// unloaded.
//
//	sup, err := watchdog.New(builder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Dispose()
//
//	sup.HostStart()
//	// ... host runs ...
//	if !sup.HostStop() {
//	    log.Print("service did not stop within the shutdown timeout")
//	}
//
// # Concurrency Model
//
// Every lifecycle operation (start, stop, restart, monitor tick,
// external stop request, availability-check registration) executes as a
// task on a single-worker Runner. Tasks run strictly in submission
// order, so the service handle and the availability checks are mutated
// without any locking: serialization is by construction. The only call
// that blocks an external caller is HostStop, which waits up to the
// configured shutdown timeout for the stop sequence to complete.
//
// The monitor tick reschedules itself through a Timer whose callbacks
// always hop back onto the Runner before touching shared state. The
// reschedule is registered as a deferred cleanup, so a failing or
// panicking tick cannot silently end monitoring.
//
// # Design Philosophy
//
// This library prioritizes:
//
//   - One service instance, one worker, zero shared-memory locking in
//     the supervision logic
//   - Absorbed failures: a failed lifecycle step leaves the handle
//     unchanged and surfaces only through diagnostics and the HostStop
//     boolean
//   - Bounded waits everywhere a caller can block (stop, shutdown,
//     timer cancellation)
//   - Pluggable availability checks consulted before every start
//     attempt
//
// The ProcessBuilder is included because most deployments supervise an
// ordinary child process; it scaffolds a runit-style service directory
// and drives the command directly. It remains optional - any Builder
// implementation can supply the managed service.
package watchdog
