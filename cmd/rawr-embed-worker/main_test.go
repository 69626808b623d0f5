package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Keksclan/goRawrCache/embedding"
)

func decode(t *testing.T, out *bytes.Buffer) embedding.Response {
	t.Helper()
	var resp embedding.Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("undecodable response %q: %v", out.String(), err)
	}
	return resp
}

func TestRun_BadRequestStillRespondsJSON(t *testing.T) {
	var out bytes.Buffer
	code := run(strings.NewReader("not json"), &out, embedding.ModelConfig{})
	if code == 0 {
		t.Fatal("expected non-zero exit for a bad request")
	}
	resp := decode(t, &out)
	if resp.Error == "" {
		t.Fatal("expected an error body")
	}
}

func TestRun_EmptyTexts(t *testing.T) {
	var out bytes.Buffer
	code := run(strings.NewReader(`{"model":"m","texts":[]}`), &out, embedding.ModelConfig{})
	if code == 0 {
		t.Fatal("expected non-zero exit")
	}
	if resp := decode(t, &out); resp.Error == "" {
		t.Fatal("expected an error body")
	}
}

func TestRun_ModelUnavailableRespondsError(t *testing.T) {
	// Without the llama build tag the model cannot load; the contract still
	// holds: a parseable error body on stdout.
	var out bytes.Buffer
	code := run(
		strings.NewReader(`{"model":"m","texts":["hello"]}`),
		&out,
		embedding.ModelConfig{Path: "/nonexistent/model.gguf"},
	)
	if code == 0 {
		t.Skip("built with native model support; load unexpectedly succeeded")
	}
	resp := decode(t, &out)
	if resp.Error == "" {
		t.Fatal("expected an error body")
	}
	if len(resp.Embeddings) != 0 {
		t.Fatal("error response must not carry embeddings")
	}
}
