package gorawrcache

import (
	"time"

	"github.com/Keksclan/goRawrCache/embedding"
)

// Defaults applied by New when the corresponding option is absent.
const (
	// DefaultCapacity bounds the cache when WithCapacity is not given.
	DefaultCapacity = 1024

	// DefaultTTL is the entry lifetime when WithDefaultTTL is not given.
	DefaultTTL = time.Hour

	// DefaultSemanticThreshold is the minimum cosine similarity for a
	// semantic hit when WithSemanticThreshold is not given.
	DefaultSemanticThreshold = 0.85

	// DefaultDimension mirrors the embedding package default.
	DefaultDimension = embedding.DefaultDimension
)

// CountTokens is the default token estimator: roughly four characters per
// token, never less than one for non-empty text. It is deliberately crude —
// it only needs to rank savings, not bill them.
func CountTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}
