package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/Keksclan/goRawrCache/ratelimit"
)

// DefaultWorkerTimeout bounds a single worker round trip, model load
// included.
const DefaultWorkerTimeout = 20 * time.Second

// WorkerConfig configures a Worker backend.
type WorkerConfig struct {
	// Command is the worker binary. Required.
	Command string

	// Args are passed to the worker before the request is written to its
	// stdin.
	Args []string

	// Model is the model name sent in every request.
	Model string

	// Timeout is the wall-clock budget per call. Zero means
	// DefaultWorkerTimeout.
	Timeout time.Duration

	// Dimension is the expected vector dimension. Zero disables the check.
	Dimension int

	// Spawn optionally gates process creation. Nil means unlimited.
	Spawn *ratelimit.Limiter
}

// Worker computes embeddings in a fresh, short-lived child process per call:
// the request is written to the child's stdin, the response read from its
// stdout under a wall-clock timeout. A crash, hang or memory blow-up in the
// native runtime takes down the child, never the host. On timeout the child
// is killed and reaped — an orphaned process is never left behind.
type Worker struct {
	cfg WorkerConfig
}

// NewWorker creates a Worker backend.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("embedding: worker command is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWorkerTimeout
	}
	return &Worker{cfg: cfg}, nil
}

// Name implements Backend.
func (w *Worker) Name() string { return "worker" }

// Embed implements Backend.
//
// Failure mapping: spawn failure or a non-zero exit with no parseable
// output → Unavailable; deadline expiry → Timeout; empty or undecodable
// stdout → MalformedOutput; a decoded error field → ModelError. The exit
// code itself is informational: a response that decodes cleanly wins
// regardless of how the process exited.
func (w *Worker) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &BackendError{Backend: w.Name(), Kind: ModelError, Err: ErrEmptyInput}
	}

	payload, err := json.Marshal(Request{Model: w.cfg.Model, Texts: texts})
	if err != nil {
		return nil, &BackendError{Backend: w.Name(), Kind: ModelError, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	if w.cfg.Spawn != nil {
		// Deadline expiry and caller cancellation are both transient and
		// say nothing about the backend's health, so classify as Timeout.
		if err := w.cfg.Spawn.Wait(ctx); err != nil {
			return nil, &BackendError{Backend: w.Name(), Kind: Timeout, Err: err}
		}
	}

	cmd := exec.CommandContext(ctx, w.cfg.Command, w.cfg.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// After the context kills the child, don't wait on inherited pipes
	// forever.
	cmd.WaitDelay = time.Second

	runErr := cmd.Run()

	if ctx.Err() != nil {
		// CommandContext has already killed the child; Run reaped it.
		return nil, &BackendError{Backend: w.Name(), Kind: Timeout, Err: ctx.Err()}
	}

	resp, decodeErr := decodeResponse(stdout.Bytes())

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The process never ran.
			return nil, &BackendError{Backend: w.Name(), Kind: Unavailable, Err: runErr}
		}
		if decodeErr != nil {
			// Died without telling us anything usable.
			return nil, &BackendError{
				Backend: w.Name(),
				Kind:    Unavailable,
				Err:     fmt.Errorf("%w (stderr: %s)", runErr, truncate(stderr.String(), 256)),
			}
		}
		// Non-zero exit but a clean response body: the body decides.
	}

	if decodeErr != nil {
		return nil, &BackendError{Backend: w.Name(), Kind: MalformedOutput, Err: decodeErr}
	}
	if resp.Error != "" {
		return nil, &BackendError{Backend: w.Name(), Kind: ModelError, Err: errors.New(resp.Error)}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &BackendError{
			Backend: w.Name(),
			Kind:    MalformedOutput,
			Err:     fmt.Errorf("got %d vectors for %d texts", len(resp.Embeddings), len(texts)),
		}
	}
	if w.cfg.Dimension > 0 {
		for i, v := range resp.Embeddings {
			if len(v) != w.cfg.Dimension {
				return nil, &BackendError{
					Backend: w.Name(),
					Kind:    MalformedOutput,
					Err:     fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), w.cfg.Dimension),
				}
			}
		}
	}
	return resp.Embeddings, nil
}

// decodeResponse parses the worker's stdout. Anything other than a single
// JSON Response body is malformed.
func decodeResponse(out []byte) (Response, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Response{}, errors.New("empty worker output")
	}
	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return Response{}, fmt.Errorf("undecodable worker output: %w", err)
	}
	if resp.Error == "" && resp.Embeddings == nil {
		return Response{}, errors.New("worker output has neither embeddings nor error")
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
