package watchdog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSequenceCreateThreadsServiceIntoStart(t *testing.T) {
	b := newFakeBuilder()
	sc := &StepContext{Builder: b}

	seq := NewSequence(sc, StepCreate, StepStart)
	ok := NewSequencer(zerolog.Nop()).Execute(context.Background(), seq)

	require.True(t, ok)
	require.NotNil(t, sc.Service)
	require.True(t, b.svc(1).started.Load())
}

func TestSequenceHaltsAtFirstFailure(t *testing.T) {
	b := newFakeBuilder()
	b.stopErr = errors.New("stop refused")
	svc, err := b.Build(context.Background())
	require.NoError(t, err)

	sc := &StepContext{Service: svc}
	seq := NewSequence(sc, StepStop, StepUnload)
	s := NewSequencer(zerolog.Nop())

	require.False(t, s.Execute(context.Background(), seq))
	require.False(t, b.svc(1).unloaded.Load(), "unload must not run after stop failed")

	var stepErr *StepError
	require.ErrorAs(t, seq.Err(), &stepErr)
	require.Equal(t, StepStop, stepErr.Step)
}

func TestSequenceHaltIsTerminal(t *testing.T) {
	b := newFakeBuilder()
	b.stopErr = errors.New("stop refused")
	svc, err := b.Build(context.Background())
	require.NoError(t, err)

	seq := NewSequence(&StepContext{Service: svc}, StepStop, StepUnload)
	s := NewSequencer(zerolog.Nop())

	require.False(t, s.Execute(context.Background(), seq))
	require.False(t, s.Execute(context.Background(), seq), "halted sequence must not resume")
	require.False(t, b.svc(1).unloaded.Load())
}

func TestSequenceMissingHandler(t *testing.T) {
	seq := NewSequence(&StepContext{}, Step(42))
	s := NewSequencer(zerolog.Nop())

	require.False(t, s.Execute(context.Background(), seq))
	require.ErrorIs(t, seq.Err(), ErrNoHandler)
}

func TestSequenceStopUnloadWithoutHandle(t *testing.T) {
	// No handle is a pass-through, not a failure: the handlers no-op.
	seq := NewSequence(&StepContext{}, StepStop, StepUnload)
	require.True(t, NewSequencer(zerolog.Nop()).Execute(context.Background(), seq))
	require.NoError(t, seq.Err())
}

func TestSequenceStartWithoutService(t *testing.T) {
	seq := NewSequence(&StepContext{}, StepStart)
	require.False(t, NewSequencer(zerolog.Nop()).Execute(context.Background(), seq))
	require.ErrorIs(t, seq.Err(), ErrNoService)
}

func TestSequenceCreateWithoutBuilder(t *testing.T) {
	seq := NewSequence(&StepContext{}, StepCreate)
	require.False(t, NewSequencer(zerolog.Nop()).Execute(context.Background(), seq))
	require.ErrorIs(t, seq.Err(), ErrNilBuilder)
}

func TestStepString(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{StepCreate, "create"},
		{StepStart, "start"},
		{StepStop, "stop"},
		{StepUnload, "unload"},
		{StepUnknown, "unknown"},
		{Step(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.step.String(); got != tt.want {
			t.Errorf("Step(%d).String() = %q, want %q", tt.step, got, tt.want)
		}
	}
}
