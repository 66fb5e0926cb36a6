package watchdog

import (
	"errors"
	"fmt"
)

// Common errors returned by watchdog operations
var (
	// ErrNilBuilder indicates a Supervisor was constructed without a builder
	ErrNilBuilder = errors.New("watchdog: builder is nil")

	// ErrNoService indicates a step required a service handle that is absent
	ErrNoService = errors.New("watchdog: no service handle")

	// ErrNoHandler indicates a sequence step had no registered handler
	ErrNoHandler = errors.New("watchdog: no handler for step")
)

// StepError represents a failure of a single lifecycle step
type StepError struct {
	// Step is the lifecycle step that failed
	Step Step
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *StepError) Error() string {
	return fmt.Sprintf("watchdog %s: %v", e.Step.String(), e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *StepError) Unwrap() error {
	return e.Err
}
