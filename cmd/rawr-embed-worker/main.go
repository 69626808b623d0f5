// rawr-embed-worker computes embeddings for exactly one request: a JSON
// request on stdin, a JSON response on stdout, then exit. Running the model
// in a disposable child keeps native-runtime crashes, hangs and memory
// blow-ups out of the host process — the host kills and respawns instead of
// dying.
//
// The exit code is informational only; the host trusts the stdout body.
// Binaries built without the llama tag respond with a model-not-compiled
// error, which the host treats as the backend being unavailable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/Keksclan/goRawrCache/embedding"
)

func main() {
	modelPath := flag.String("model", os.Getenv("RAWR_MODEL_PATH"), "path to the GGUF model file")
	dimension := flag.Int("dimension", 0, "expected embedding dimension (0 = accept the model's)")
	contextSize := flag.Int("context-size", 0, "model context size (0 = model default)")
	threads := flag.Int("threads", 0, "inference threads (0 = runtime default)")
	flag.Parse()

	os.Exit(run(os.Stdin, os.Stdout, embedding.ModelConfig{
		Path:        *modelPath,
		Dimension:   *dimension,
		ContextSize: *contextSize,
		Threads:     *threads,
	}))
}

func run(in io.Reader, out io.Writer, cfg embedding.ModelConfig) int {
	var req embedding.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		respond(out, embedding.Response{Error: "decode request: " + err.Error()})
		return 1
	}
	if len(req.Texts) == 0 {
		respond(out, embedding.Response{Error: "empty texts"})
		return 1
	}

	model, err := embedding.NewInProcess(cfg)
	if err != nil {
		respond(out, embedding.Response{Error: "load model: " + err.Error()})
		return 1
	}
	defer model.Close()

	vecs, err := model.Embed(context.Background(), req.Texts)
	if err != nil {
		respond(out, embedding.Response{Error: err.Error()})
		return 1
	}
	respond(out, embedding.Response{Embeddings: vecs})
	return 0
}

func respond(out io.Writer, resp embedding.Response) {
	// An encode failure leaves the host with an empty body, which it
	// already treats as a malformed response; nothing better to do here.
	_ = json.NewEncoder(out).Encode(resp)
}
