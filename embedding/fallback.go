package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Fallback is the terminal backend of the chain: a pure, content-derived
// embedding that requires no model, no process and no allocation beyond its
// output. Identical text always yields a bit-identical vector. It carries no
// semantic knowledge — two paraphrases of the same question land far apart —
// so similarity quality degrades when the chain ends here, but caching keeps
// working.
type Fallback struct {
	dim int
}

// NewFallback creates a Fallback producing vectors of the given dimension.
// Non-positive dimensions use DefaultDimension; construction is total.
func NewFallback(dim int) *Fallback {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Fallback{dim: dim}
}

// Name implements Backend.
func (f *Fallback) Name() string { return "fallback" }

// Dimension returns the vector dimension.
func (f *Fallback) Dimension() int { return f.dim }

// Embed implements Backend. The returned error is always nil.
func (f *Fallback) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = f.vector(t)
	}
	return vecs, nil
}

// vector hashes word unigrams and adjacent bigrams into buckets of the
// output vector, then L2-normalizes so cosine comparison is meaningful.
func (f *Fallback) vector(text string) []float32 {
	v := make([]float32, f.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		// Deterministic unit vector for empty text.
		v[0] = 1
		return v
	}

	for i, w := range words {
		v[f.bucket(w)]++
		if i+1 < len(words) {
			v[f.bucket(w+" "+words[i+1])] += 0.5
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

func (f *Fallback) bucket(s string) int {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int(h.Sum64() % uint64(f.dim))
}
