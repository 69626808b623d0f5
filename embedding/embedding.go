// Package embedding computes fixed-dimension vector representations of text
// behind a resilience chain. Three backends implement the same contract: an
// in-process model (fastest, may be unavailable on a platform), an isolated
// worker subprocess (slow but crash-proof for the host), and a deterministic
// content-derived fallback that cannot fail. The Selector composes them so
// that callers always receive a vector, however degraded.
package embedding

import (
	"errors"
	"fmt"

	"context"
)

// DefaultDimension is the vector dimension used when none is configured. It
// matches the MiniLM-class sentence models commonly served by local
// runtimes.
const DefaultDimension = 384

// FailureKind classifies why a backend call failed. Every kind is
// recoverable: the chain absorbs the failure and moves on.
type FailureKind int

const (
	// Unavailable: the backend cannot run at all (spawn failure, missing
	// model, dead runtime). Marks the backend known-bad immediately.
	Unavailable FailureKind = iota

	// Timeout: the call exceeded its wall-clock budget. Transient; the
	// backend is retried on the next call.
	Timeout

	// MalformedOutput: the backend produced output that does not decode to
	// the expected vectors. Transient.
	MalformedOutput

	// ModelError: the backend ran and explicitly reported a model-level
	// error. Repeated occurrences mark the backend known-bad.
	ModelError
)

// String returns a stable lower-case name for logging and metrics labels.
func (k FailureKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	case MalformedOutput:
		return "malformed_output"
	case ModelError:
		return "model_error"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// BackendError is the failure type returned by every backend. It carries the
// backend name and the failure classification the Selector acts on.
type BackendError struct {
	Backend string
	Kind    FailureKind
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("embedding: %s backend: %s", e.Backend, e.Kind)
	}
	return fmt.Sprintf("embedding: %s backend: %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// KindOf extracts the failure classification from err. The boolean is false
// when err does not originate from a backend (e.g. a cancelled context).
func KindOf(err error) (FailureKind, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// ErrEmptyInput is returned when Embed is called with no texts. The chain
// contract requires a non-empty input list.
var ErrEmptyInput = errors.New("embedding: empty texts")

// Backend computes embeddings for a batch of texts. Implementations return
// one vector per input text, in input order, all of the same dimension, or a
// *BackendError. Implementations must not retain the input slice after
// returning.
type Backend interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Embed computes one vector per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Request is the wire request written to a worker subprocess, one per
// process invocation.
type Request struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

// Response is the wire response read back from a worker subprocess. Exactly
// one of Embeddings and Error is set.
type Response struct {
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Error      string      `json:"error,omitempty"`
}
