package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Keksclan/goRawrCache/cache"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)

	now := time.Now().Truncate(time.Nanosecond)
	entries := []cache.Entry{
		{
			Key:        "what is go?",
			Query:      "What is Go?",
			Response:   "a programming language",
			Embedding:  []float32{0.1, 0.2, 0.3, 0.4},
			TokenCost:  12,
			CreatedAt:  now,
			TTL:        time.Hour,
			UsageCount: 3,
			LastUsedAt: now.Add(time.Minute),
		},
		{
			Key:        "second",
			Query:      "second",
			Response:   "r2",
			Embedding:  []float32{1, 0, 0, 0},
			CreatedAt:  now,
			LastUsedAt: now,
		},
	}

	if err := s.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d entries, want 2", len(got))
	}
	if got[0].Key != "what is go?" || got[1].Key != "second" {
		t.Fatalf("order not preserved: %q, %q", got[0].Key, got[1].Key)
	}

	e := got[0]
	if e.Response != "a programming language" || e.TokenCost != 12 || e.UsageCount != 3 {
		t.Fatalf("fields lost: %+v", e)
	}
	if e.TTL != time.Hour {
		t.Fatalf("TTL = %v, want 1h", e.TTL)
	}
	if !e.CreatedAt.Equal(now) || !e.LastUsedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("timestamps drifted: %v / %v", e.CreatedAt, e.LastUsedAt)
	}
	if len(e.Embedding) != 4 || e.Embedding[2] != 0.3 {
		t.Fatalf("embedding lost: %v", e.Embedding)
	}
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	s := openStore(t)

	now := time.Now()
	first := []cache.Entry{
		{Key: "a", Query: "a", Response: "A", Embedding: []float32{1}, CreatedAt: now, LastUsedAt: now},
		{Key: "b", Query: "b", Response: "B", Embedding: []float32{1}, CreatedAt: now, LastUsedAt: now},
	}
	if err := s.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := []cache.Entry{
		{Key: "c", Query: "c", Response: "C", Embedding: []float32{1}, CreatedAt: now, LastUsedAt: now},
	}
	if err := s.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got[0].Key != "c" {
		t.Fatalf("snapshot not replaced: %+v", got)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := openStore(t)

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(got))
	}
}

func TestStore_CacheRestartScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.db")
	ctx := t.Context()

	source := cache.VectorizerFunc(func(_ context.Context, _ string) []float32 {
		return []float32{1, 0, 0, 0}
	})

	// First "process": fill a cache, snapshot it, shut down.
	c1, err := cache.New(source, cache.Config{Capacity: 8, Dimension: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c1.Put(ctx, "What is Go?", "a programming language", 12, time.Hour)
	c1.Put(ctx, "What is Rust?", "another one", 9, time.Hour)

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Save(c1.Export()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Second "process": restore and serve.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s2.Close() })

	entries, err := s2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	c2, err := cache.New(source, cache.Config{Capacity: 8, Dimension: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := c2.Import(entries); n != 2 {
		t.Fatalf("Import = %d, want 2", n)
	}
	e, ok := c2.GetExact(ctx, "What is Go?")
	if !ok || e.Response != "a programming language" {
		t.Fatalf("restart lost the entry: (%+v, %v)", e, ok)
	}
}
