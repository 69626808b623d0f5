package embedding

import (
	"math"
	"testing"
)

func TestFallback_Deterministic(t *testing.T) {
	f := NewFallback(64)
	ctx := t.Context()

	for _, text := range []string{"", "hello", "what is the python language"} {
		a, err := f.Embed(ctx, []string{text})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		b, err := f.Embed(ctx, []string{text})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		for i := range a[0] {
			// Bit-identical, not merely approximately equal.
			if math.Float32bits(a[0][i]) != math.Float32bits(b[0][i]) {
				t.Fatalf("vectors for %q differ at index %d: %v vs %v", text, i, a[0][i], b[0][i])
			}
		}
	}
}

func TestFallback_DimensionAndOrder(t *testing.T) {
	f := NewFallback(32)

	texts := []string{"alpha", "beta", "gamma"}
	vecs, err := f.Embed(t.Context(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != 32 {
			t.Fatalf("vector %d has dimension %d, want 32", i, len(v))
		}
	}

	// Different texts should not collide onto identical vectors.
	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct texts produced identical vectors")
	}
}

func TestFallback_UnitNorm(t *testing.T) {
	f := NewFallback(128)

	vecs, err := f.Embed(t.Context(), []string{"some reasonably long input text here"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	var norm float64
	for _, x := range vecs[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("squared norm = %v, want 1", norm)
	}
}

func TestFallback_DefaultDimension(t *testing.T) {
	f := NewFallback(0)
	if f.Dimension() != DefaultDimension {
		t.Fatalf("Dimension() = %d, want %d", f.Dimension(), DefaultDimension)
	}
}
