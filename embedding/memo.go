package embedding

import (
	"context"
	"slices"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// Vectorizer turns a single text into a vector and cannot fail. The
// Selector satisfies it via VectorizerFunc; the Memo wraps it.
type Vectorizer interface {
	Vector(ctx context.Context, text string) []float32
}

// Vector adapts the batch Embed to the single-text Vectorizer contract.
func (s *Selector) Vector(ctx context.Context, text string) []float32 {
	vecs := s.Embed(ctx, []string{text})
	if len(vecs) == 0 {
		return nil
	}
	return vecs[0]
}

// Memo memoizes text→vector results in front of a Vectorizer so repeated
// operations on the same normalized text (a Put followed by lookups, or
// concurrent misses for one hot query) hit the backend chain once.
type Memo struct {
	rc     *ristretto.Cache[string, []float32]
	source Vectorizer

	mu    sync.Mutex
	loads map[string]*vectorCall
}

// vectorCall deduplicates concurrent computes for the same text.
type vectorCall struct {
	wg  sync.WaitGroup
	vec []float32
}

// NewMemo creates a Memo holding up to maxEntries vectors.
func NewMemo(source Vectorizer, maxEntries int64) (*Memo, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memo{
		rc:     rc,
		source: source,
		loads:  make(map[string]*vectorCall),
	}, nil
}

// Vector returns the memoized vector for text, computing it once per text
// across concurrent callers. The returned slice is the caller's to keep.
func (m *Memo) Vector(ctx context.Context, text string) []float32 {
	if v, ok := m.rc.Get(text); ok {
		return slices.Clone(v)
	}

	m.mu.Lock()
	if c, ok := m.loads[text]; ok {
		m.mu.Unlock()
		c.wg.Wait()
		return slices.Clone(c.vec)
	}

	c := &vectorCall{}
	c.wg.Add(1)
	m.loads[text] = c
	m.mu.Unlock()

	c.vec = m.source.Vector(ctx, text)
	m.rc.Set(text, c.vec, 1)
	m.rc.Wait()
	c.wg.Done()

	m.mu.Lock()
	delete(m.loads, text)
	m.mu.Unlock()

	return slices.Clone(c.vec)
}
