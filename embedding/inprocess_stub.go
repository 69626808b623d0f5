//go:build !llama

package embedding

// newModelEngine returns ErrModelNotCompiled when built without the llama
// tag, so NewInProcess fails at construction and the chain is assembled
// without this backend.
func newModelEngine(_ ModelConfig) (modelEngine, error) {
	return nil, ErrModelNotCompiled
}
