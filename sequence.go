package watchdog

import (
	"context"

	"github.com/rs/zerolog"
)

// Step identifies a lifecycle operation within a sequence
type Step int

const (
	// StepUnknown represents an unknown step
	StepUnknown Step = iota
	// StepCreate builds a fresh service instance
	StepCreate
	// StepStart brings a created instance up
	StepStart
	// StepStop brings a running instance down
	StepStop
	// StepUnload releases a stopped instance
	StepUnload
)

// Step string constants
const (
	stepUnknownStr = "unknown"
	stepCreateStr  = "create"
	stepStartStr   = "start"
	stepStopStr    = "stop"
	stepUnloadStr  = "unload"
)

// String returns the string representation of a Step
func (s Step) String() string {
	switch s {
	case StepCreate:
		return stepCreateStr
	case StepStart:
		return stepStartStr
	case StepStop:
		return stepStopStr
	case StepUnload:
		return stepUnloadStr
	default:
		return stepUnknownStr
	}
}

// StepContext is the shared variable bag for one sequence run. Fields
// written by an earlier step are visible to every later step bound to
// the same context: Create stores the Service that Start reads, and the
// caller seeds Service for Stop/Unload up front.
type StepContext struct {
	// Builder produces the instance in the Create step
	Builder Builder
	// Service is the instance handle threaded between steps
	Service Service
}

type boundStep struct {
	step Step
	sc   *StepContext
}

// Sequence is an ordered list of steps, each bound to a StepContext,
// with a cursor consumed one step at a time. A sequence either
// completes fully or halts at its first failing step; halting is
// terminal for the instance.
type Sequence struct {
	steps  []boundStep
	next   int
	halted bool
	err    error
}

// NewSequence creates a sequence with the given steps bound to sc
func NewSequence(sc *StepContext, steps ...Step) *Sequence {
	q := &Sequence{}
	return q.Bind(sc, steps...)
}

// Bind appends steps bound to sc, which may differ from the context of
// earlier steps. A restart interleaves two contexts this way: the new
// instance's and the old instance's.
func (q *Sequence) Bind(sc *StepContext, steps ...Step) *Sequence {
	for _, s := range steps {
		q.steps = append(q.steps, boundStep{step: s, sc: sc})
	}
	return q
}

// Err returns the error that halted the sequence, or nil
func (q *Sequence) Err() error {
	return q.err
}

// Handler executes one lifecycle step against its bound context
type Handler func(ctx context.Context, sc *StepContext) error

// Sequencer executes sequences by resolving each step identity against
// a table of registered handlers.
type Sequencer struct {
	handlers map[Step]Handler
	log      zerolog.Logger
}

// NewSequencer creates a Sequencer with the standard lifecycle handlers
// registered.
func NewSequencer(log zerolog.Logger) *Sequencer {
	s := &Sequencer{
		handlers: make(map[Step]Handler),
		log:      log,
	}
	s.Register(StepCreate, createStep)
	s.Register(StepStart, startStep)
	s.Register(StepStop, stopStep)
	s.Register(StepUnload, unloadStep)
	return s
}

// Register sets the handler for a step identity, replacing any previous
// registration.
func (s *Sequencer) Register(step Step, h Handler) {
	s.handlers[step] = h
}

// Execute runs each step of q in order and returns true only if every
// step completed. On the first failure it halts immediately: no further
// steps run, no rollback is attempted, and the sequence instance cannot
// be resumed. A step identity with no registered handler counts as a
// failure of that step.
func (s *Sequencer) Execute(ctx context.Context, q *Sequence) bool {
	if q.halted {
		return false
	}

	for q.next < len(q.steps) {
		b := q.steps[q.next]
		q.next++

		h, ok := s.handlers[b.step]
		if !ok {
			q.halted = true
			q.err = &StepError{Step: b.step, Err: ErrNoHandler}
			s.log.Error().Stringer("step", b.step).Msg("no handler registered for step")
			return false
		}

		if err := h(ctx, b.sc); err != nil {
			q.halted = true
			q.err = &StepError{Step: b.step, Err: err}
			s.log.Warn().Err(err).Stringer("step", b.step).Msg("lifecycle step failed")
			return false
		}
	}
	return true
}

// createStep builds a fresh instance and stores it in the bag
func createStep(ctx context.Context, sc *StepContext) error {
	if sc.Builder == nil {
		return ErrNilBuilder
	}
	svc, err := sc.Builder.Build(ctx)
	if err != nil {
		return err
	}
	sc.Service = svc
	return nil
}

// startStep brings the instance produced by Create up
func startStep(ctx context.Context, sc *StepContext) error {
	if sc.Service == nil {
		return ErrNoService
	}
	return sc.Service.Start(ctx)
}

// stopStep brings the instance down; with no handle it is a pass-through
func stopStep(ctx context.Context, sc *StepContext) error {
	if sc.Service == nil {
		return nil
	}
	return sc.Service.Stop(ctx)
}

// unloadStep releases the instance; with no handle it is a pass-through
func unloadStep(ctx context.Context, sc *StepContext) error {
	if sc.Service == nil {
		return nil
	}
	return sc.Service.Unload(ctx)
}
