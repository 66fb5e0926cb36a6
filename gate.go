package watchdog

// Check is an availability predicate consulted before the supervisor
// attempts to start the service. Allow returns whether starting is
// currently permitted and, on denial, a human-readable reason.
type Check interface {
	Allow() (ok bool, reason string)
}

// CheckFunc adapts a function to the Check interface
type CheckFunc func() (bool, string)

// Allow calls f
func (f CheckFunc) Allow() (bool, string) {
	return f()
}

// Gate holds an ordered set of availability checks. The supervisor may
// start the service only if every check permits it. The set is mutated
// only via tasks on the supervisor's queue, so reads need no locking.
type Gate struct {
	checks []Check
}

// Add appends a check to the set
func (g *Gate) Add(chk Check) {
	g.checks = append(g.checks, chk)
}

// Len returns the number of registered checks
func (g *Gate) Len() int {
	return len(g.checks)
}

// CanStart consults the checks in order and returns permit=true only if
// every check permits. On the first denial it short-circuits and
// surfaces that check's reason; ordering only decides which reason is
// reported, since all checks must agree for a permit.
func (g *Gate) CanStart() (bool, string) {
	for _, chk := range g.checks {
		if ok, reason := chk.Allow(); !ok {
			return false, reason
		}
	}
	return true, ""
}
