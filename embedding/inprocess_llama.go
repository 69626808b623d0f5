//go:build llama

package embedding

import (
	"context"
	"fmt"
	"sync"

	llamago "github.com/tcpipuk/llama-go"
)

// llamaEngine implements modelEngine over the llama-go CGo bindings. The
// llama context is single-threaded, so calls are serialized by mutex.
type llamaEngine struct {
	model    *llamago.Model
	llamaCtx *llamago.Context
	mu       sync.Mutex
}

func newModelEngine(cfg ModelConfig) (modelEngine, error) {
	model, err := llamago.LoadModel(cfg.Path,
		llamago.WithGPULayers(cfg.GPULayers),
		llamago.WithSilentLoading(),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding: load model: %w", err)
	}

	ctxOpts := []llamago.ContextOption{llamago.WithEmbeddings()}
	if cfg.ContextSize > 0 {
		ctxOpts = append(ctxOpts, llamago.WithContext(cfg.ContextSize))
	}
	if cfg.Threads > 0 {
		ctxOpts = append(ctxOpts, llamago.WithThreads(cfg.Threads))
	}

	llamaCtx, err := model.NewContext(ctxOpts...)
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("embedding: create context: %w", err)
	}

	return &llamaEngine{model: model, llamaCtx: llamaCtx}, nil
}

func (e *llamaEngine) EmbedText(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec, err := e.llamaCtx.GetEmbeddings(text)
	if err != nil {
		return nil, fmt.Errorf("embedding: model inference: %w", err)
	}
	return vec, nil
}

func (e *llamaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.llamaCtx != nil {
		e.llamaCtx.Close()
		e.llamaCtx = nil
	}
	if e.model != nil {
		err := e.model.Close()
		e.model = nil
		return err
	}
	return nil
}
