// Package cache implements a bounded semantic response cache: entries are
// keyed by normalized query text for exact lookup and carry an embedding
// vector for cosine-similarity lookup. Capacity is enforced by LRU eviction
// (preferring already-expired entries), entries expire by TTL, and all
// store mutation happens under a single mutex — an exact-match read bumps
// usage bookkeeping, so readers are writers here and a reader/writer split
// buys nothing.
package cache

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"
)

// ErrInvalidConfig is returned by New for configurations that cannot work
// (non-positive capacity or dimension). Misconfiguration fails fast at
// construction, never on first use.
var ErrInvalidConfig = errors.New("cache: invalid configuration")

// Vectorizer supplies the embedding for a normalized text. Implementations
// sit in front of a resilience chain and therefore cannot fail — at worst
// the vector is a degraded deterministic fallback.
type Vectorizer interface {
	Vector(ctx context.Context, text string) []float32
}

// VectorizerFunc adapts a function to the Vectorizer interface.
type VectorizerFunc func(ctx context.Context, text string) []float32

// Vector implements Vectorizer.
func (f VectorizerFunc) Vector(ctx context.Context, text string) []float32 {
	return f(ctx, text)
}

// Entry is a cached response. Entries are owned exclusively by the Cache;
// lookups return copies, so callers may keep them without holding locks.
type Entry struct {
	// Key is the normalized query text.
	Key string

	// Query is the original query as first stored.
	Query string

	// Response is the cached expensive-computation result.
	Response string

	// Embedding is the vector for semantic lookup. Its length equals the
	// cache's configured dimension for every entry in a cache instance.
	Embedding []float32

	// TokenCost is what computing Response cost, in tokens. A hit saves
	// this amount.
	TokenCost int

	// CreatedAt is when the entry was stored (refreshed on overwrite).
	CreatedAt time.Time

	// TTL is the entry's effective lifetime. Zero means no expiry.
	TTL time.Duration

	// UsageCount counts successful lookups of this entry.
	UsageCount uint64

	// LastUsedAt is the time of the most recent successful lookup (or the
	// store time).
	LastUsedAt time.Time
}

// expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL))
}

// clone returns a copy whose embedding does not alias the cache-owned
// slice.
func (e *Entry) clone() Entry {
	c := *e
	c.Embedding = slices.Clone(e.Embedding)
	return c
}

// cosine returns the cosine similarity of a and b, accumulating in float64
// so float32 rounding does not disturb tie-breaks. Mismatched or zero
// vectors compare as -1 (never a hit at any threshold in [0,1]).
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
