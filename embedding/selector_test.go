package embedding

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
)

// fakeBackend returns a scripted error (or vectors of dimension dim) and
// counts its calls.
type fakeBackend struct {
	name  string
	dim   int
	fail  func() error // nil result means success
	calls atomic.Int32
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.fail != nil {
		if err := f.fail(); err != nil {
			return nil, err
		}
	}
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = make([]float32, f.dim)
		vecs[i][0] = 1
	}
	return vecs, nil
}

func alwaysFail(name string, kind FailureKind) *fakeBackend {
	return &fakeBackend{
		name: name,
		fail: func() error {
			return &BackendError{Backend: name, Kind: kind, Err: errors.New("simulated")}
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestSelector_AllBackendsFailingStillReturnsVector(t *testing.T) {
	inproc := alwaysFail("inprocess", Unavailable)
	worker := alwaysFail("worker", Timeout)

	s := NewSelector(16, []Backend{inproc, worker}, WithSelectorLogger(quietLogger()))

	vecs := s.Embed(t.Context(), []string{"x"})
	if len(vecs) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vecs))
	}
	if len(vecs[0]) != 16 {
		t.Fatalf("fallback vector has dimension %d, want 16", len(vecs[0]))
	}
}

func TestSelector_PrefersFirstHealthyBackend(t *testing.T) {
	first := &fakeBackend{name: "first", dim: 8}
	second := &fakeBackend{name: "second", dim: 8}

	s := NewSelector(8, []Backend{first, second}, WithSelectorLogger(quietLogger()))

	s.Embed(t.Context(), []string{"x"})
	if n := first.calls.Load(); n != 1 {
		t.Fatalf("first backend called %d times, want 1", n)
	}
	if n := second.calls.Load(); n != 0 {
		t.Fatalf("second backend called %d times, want 0", n)
	}
}

func TestSelector_UnavailableTripsImmediately(t *testing.T) {
	bad := alwaysFail("inprocess", Unavailable)
	s := NewSelector(8, []Backend{bad}, WithSelectorLogger(quietLogger()))
	ctx := t.Context()

	s.Embed(ctx, []string{"x"})
	s.Embed(ctx, []string{"y"})
	s.Embed(ctx, []string{"z"})

	if n := bad.calls.Load(); n != 1 {
		t.Fatalf("known-bad backend called %d times, want 1", n)
	}
	if s.Healthy()["inprocess"] {
		t.Fatal("expected inprocess gate to be open")
	}
}

func TestSelector_TimeoutIsTransient(t *testing.T) {
	slow := alwaysFail("worker", Timeout)
	s := NewSelector(8, []Backend{slow}, WithSelectorLogger(quietLogger()))
	ctx := t.Context()

	for range 5 {
		s.Embed(ctx, []string{"x"})
	}
	if n := slow.calls.Load(); n != 5 {
		t.Fatalf("timing-out backend called %d times, want 5 (timeouts must be retried)", n)
	}
	if !s.Healthy()["worker"] {
		t.Fatal("timeouts must not open the gate")
	}
}

func TestSelector_RepeatedModelErrorTrips(t *testing.T) {
	flaky := alwaysFail("worker", ModelError)
	s := NewSelector(8, []Backend{flaky}, WithSelectorLogger(quietLogger()))
	ctx := t.Context()

	for range 10 {
		s.Embed(ctx, []string{"x"})
	}
	// Default threshold is 3 consecutive model errors.
	if n := flaky.calls.Load(); n != 3 {
		t.Fatalf("backend called %d times, want 3 before tripping", n)
	}
}

func TestSelector_InstancesDoNotShareHealthState(t *testing.T) {
	bad := alwaysFail("inprocess", Unavailable)
	a := NewSelector(8, []Backend{bad}, WithSelectorLogger(quietLogger()))
	b := NewSelector(8, []Backend{bad}, WithSelectorLogger(quietLogger()))
	ctx := t.Context()

	a.Embed(ctx, []string{"x"}) // trips a's gate only

	if b.Healthy()["inprocess"] != true {
		t.Fatal("second selector must start with a closed gate")
	}
	b.Embed(ctx, []string{"x"})
	if n := bad.calls.Load(); n != 2 {
		t.Fatalf("backend called %d times, want 2 (once per instance)", n)
	}
}

func TestSelector_EmptyInput(t *testing.T) {
	s := NewSelector(8, nil, WithSelectorLogger(quietLogger()))
	if vecs := s.Embed(t.Context(), nil); vecs != nil {
		t.Fatalf("expected nil result for empty input, got %v", vecs)
	}
}
