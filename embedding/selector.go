package embedding

import (
	"context"
	"log/slog"

	"github.com/Keksclan/goRawrCache/breaker"
)

// Selector composes backends into a resilience chain: candidates are tried
// in preference order, each behind an instance-owned health gate, and a
// deterministic Fallback terminates the chain. Embed therefore always
// returns vectors and never an error; what degrades under backend
// exhaustion is similarity quality, not availability.
//
// Gate policy: Unavailable opens a candidate's gate immediately; repeated
// ModelError opens it after the configured threshold; Timeout and
// MalformedOutput are transient and leave the gate untouched. Gate state is
// per-Selector, never process-global, so independent cache instances never
// share corrupted health state.
type Selector struct {
	candidates []*candidate
	fallback   *Fallback
	log        *slog.Logger
}

type candidate struct {
	backend Backend
	gate    *breaker.Breaker
}

// SelectorOption configures a Selector.
type SelectorOption func(*selectorConfig)

type selectorConfig struct {
	gate breaker.Config
	log  *slog.Logger
}

// WithGate overrides the health-gate configuration applied to every
// candidate. The default trips permanently after 3 consecutive model errors
// (or one Unavailable).
func WithGate(cfg breaker.Config) SelectorOption {
	return func(c *selectorConfig) { c.gate = cfg }
}

// WithSelectorLogger sets the logger for backend-failure reporting.
func WithSelectorLogger(l *slog.Logger) SelectorOption {
	return func(c *selectorConfig) { c.log = l }
}

// NewSelector builds a chain over the given backends, in preference order.
// A Fallback of the given dimension is always appended as the terminal,
// ungated candidate; backends may be empty.
func NewSelector(dim int, backends []Backend, opts ...SelectorOption) *Selector {
	cfg := selectorConfig{
		gate: breaker.Config{FailureThreshold: 3, HalfOpenMaxSuccess: 1},
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Selector{
		fallback: NewFallback(dim),
		log:      cfg.log,
	}
	for _, b := range backends {
		s.candidates = append(s.candidates, &candidate{
			backend: b,
			gate:    breaker.New(cfg.gate),
		})
	}
	return s
}

// Embed runs the chain. Empty input returns an empty result; otherwise the
// first healthy candidate to succeed wins, and the fallback guarantees a
// result when every candidate is down.
func (s *Selector) Embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	for _, c := range s.candidates {
		if !c.gate.Allow() {
			continue
		}
		vecs, err := c.backend.Embed(ctx, texts)
		if err == nil {
			c.gate.OnSuccess()
			return vecs
		}
		s.record(c, err)
	}

	vecs, _ := s.fallback.Embed(ctx, texts) // cannot fail
	return vecs
}

// record logs a candidate failure and updates its gate according to the
// failure kind.
func (s *Selector) record(c *candidate, err error) {
	kind, known := KindOf(err)
	if !known {
		// Not a backend verdict (e.g. caller cancellation): transient.
		s.log.Warn("embedding backend failed",
			"backend", c.backend.Name(), "error", err)
		return
	}
	s.log.Warn("embedding backend failed",
		"backend", c.backend.Name(),
		"kind", kind.String(),
		"error", err,
	)
	switch kind {
	case Unavailable:
		c.gate.Trip()
	case ModelError:
		c.gate.OnFailure()
	case Timeout, MalformedOutput:
		// Transient: retried on the next call.
	}
}

// Healthy reports, per candidate backend name, whether its gate currently
// admits calls. Intended for diagnostics.
func (s *Selector) Healthy() map[string]bool {
	h := make(map[string]bool, len(s.candidates))
	for _, c := range s.candidates {
		h[c.backend.Name()] = c.gate.Allow()
	}
	return h
}
