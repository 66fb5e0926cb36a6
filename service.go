package watchdog

import (
	"context"
)

// Service is a running managed-service instance. A non-nil Service value
// held by the Supervisor is the service handle: its presence means the
// service is believed to be running.
//
// Implementations are driven only from the Supervisor's single worker,
// one call at a time, but Stop and Unload must tolerate being invoked
// on an instance that already exited on its own.
type Service interface {
	// Start brings the instance up
	Start(ctx context.Context) error

	// Stop brings the instance down
	Stop(ctx context.Context) error

	// Unload releases whatever the instance still holds after Stop
	Unload(ctx context.Context) error
}

// Builder produces managed-service instances. It is supplied at
// Supervisor construction and invoked by the Create step of every
// start and restart sequence.
type Builder interface {
	Build(ctx context.Context) (Service, error)
}

// BuilderFunc adapts a function to the Builder interface
type BuilderFunc func(ctx context.Context) (Service, error)

// Build calls f
func (f BuilderFunc) Build(ctx context.Context) (Service, error) {
	return f(ctx)
}
