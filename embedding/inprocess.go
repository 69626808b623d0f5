package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelNotCompiled is returned by NewInProcess when the binary was built
// without the llama build tag.
var ErrModelNotCompiled = errors.New("embedding: in-process model support not compiled (build with -tags llama)")

// ModelConfig holds in-process model configuration.
type ModelConfig struct {
	Path        string // path to a GGUF model file
	ContextSize int    // context window size (0 = model default)
	GPULayers   int    // number of GPU layers (0 = CPU only)
	Threads     int    // number of CPU threads (0 = auto)
	Dimension   int    // expected embedding dimension (0 = unchecked)
}

// modelEngine is the build-tag seam between the cgo model bindings and the
// rest of the package. Exactly one implementation is compiled in.
type modelEngine interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// InProcess computes embeddings with a model loaded once into the host
// process. It is the fastest backend when it works, and the most fragile:
// on platforms where the native runtime is broken, construction fails and
// the instance is simply never created — there is no per-call retry of
// construction.
type InProcess struct {
	eng modelEngine
	dim int
}

// NewInProcess loads the model. A load failure is permanent for this
// configuration: callers should drop the backend from their chain rather
// than retry.
func NewInProcess(cfg ModelConfig) (*InProcess, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("embedding: in-process model path is required")
	}
	eng, err := newModelEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &InProcess{eng: eng, dim: cfg.Dimension}, nil
}

// Name implements Backend.
func (p *InProcess) Name() string { return "inprocess" }

// Embed implements Backend. Runtime failures are reported as Unavailable:
// non-fatal to the caller, conclusive enough for the chain to stop trying
// this backend.
func (p *InProcess) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &BackendError{Backend: p.Name(), Kind: ModelError, Err: ErrEmptyInput}
	}

	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.eng.EmbedText(ctx, t)
		if err != nil {
			return nil, &BackendError{Backend: p.Name(), Kind: Unavailable, Err: err}
		}
		if p.dim > 0 && len(v) != p.dim {
			return nil, &BackendError{
				Backend: p.Name(),
				Kind:    MalformedOutput,
				Err:     fmt.Errorf("model produced dimension %d, want %d", len(v), p.dim),
			}
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Close releases the model. The backend must not be used afterwards.
func (p *InProcess) Close() error { return p.eng.Close() }
