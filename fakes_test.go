package watchdog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recorder collects lifecycle events in submission order
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

var errFakeBuild = errors.New("fake build failure")

type fakeService struct {
	rec  *recorder
	name string

	startErr  error
	stopErr   error
	stopDelay time.Duration

	started  atomic.Bool
	stopped  atomic.Bool
	unloaded atomic.Bool
}

func (s *fakeService) Start(context.Context) error {
	s.rec.add("start " + s.name)
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	if s.stopDelay > 0 {
		time.Sleep(s.stopDelay)
	}
	s.rec.add("stop " + s.name)
	if s.stopErr != nil {
		return s.stopErr
	}
	s.stopped.Store(true)
	return nil
}

func (s *fakeService) Unload(context.Context) error {
	s.rec.add("unload " + s.name)
	s.unloaded.Store(true)
	return nil
}

// fakeBuilder numbers the services it produces, starting at 1
type fakeBuilder struct {
	rec *recorder

	builds     atomic.Int32
	failBuilds atomic.Int32 // upcoming builds that error
	panics     atomic.Int32 // upcoming builds that panic

	startErr  error
	stopErr   error
	stopDelay time.Duration

	mu   sync.Mutex
	svcs []*fakeService
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{rec: &recorder{}}
}

func (b *fakeBuilder) Build(context.Context) (Service, error) {
	n := b.builds.Add(1)
	b.rec.add(fmt.Sprintf("create %d", n))

	if b.panics.Load() > 0 {
		b.panics.Add(-1)
		panic("fake build panic")
	}
	if b.failBuilds.Load() > 0 {
		b.failBuilds.Add(-1)
		return nil, errFakeBuild
	}

	svc := &fakeService{
		rec:       b.rec,
		name:      fmt.Sprintf("%d", n),
		startErr:  b.startErr,
		stopErr:   b.stopErr,
		stopDelay: b.stopDelay,
	}
	b.mu.Lock()
	b.svcs = append(b.svcs, svc)
	b.mu.Unlock()
	return svc, nil
}

func (b *fakeBuilder) svc(n int) *fakeService {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 1 || n > len(b.svcs) {
		return nil
	}
	return b.svcs[n-1]
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
