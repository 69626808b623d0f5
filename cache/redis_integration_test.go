package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func redisMirror(t *testing.T) *Mirror {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	m := NewMirror(addr, "", 0)
	t.Cleanup(func() { _ = m.Close() })
	if err := m.Ping(t.Context()); err != nil {
		t.Fatalf("cannot reach Redis at %s: %v", addr, err)
	}
	return m
}

func TestMirror_StoreLookup(t *testing.T) {
	m := redisMirror(t)
	ctx := t.Context()

	key := "test:mirror:" + t.Name()

	// Miss returns false.
	if _, _, ok := m.Lookup(ctx, key); ok {
		t.Fatal("expected miss")
	}

	m.Store(ctx, key, "forty-two", 42, 10*time.Second)
	response, tokenCost, ok := m.Lookup(ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if response != "forty-two" || tokenCost != 42 {
		t.Fatalf("got (%q, %d), want (%q, 42)", response, tokenCost, "forty-two")
	}
}

func TestMirror_WarmRestart(t *testing.T) {
	m := redisMirror(t)
	ctx := t.Context()

	// First "process": store through a cache wired to the mirror.
	c1 := mustNewCache(t, Config{Capacity: 8, Dimension: 4, Mirror: m})
	c1.Put(ctx, "what is the answer "+t.Name(), "42", 10, time.Minute)

	// Second "process": empty in-memory store, same mirror. The exact hit
	// must come back.
	c2 := mustNewCache(t, Config{Capacity: 8, Dimension: 4, Mirror: m})
	e, ok := c2.GetExact(ctx, "what is the answer "+t.Name())
	if !ok {
		t.Fatal("expected mirror-backed exact hit after restart")
	}
	if e.Response != "42" {
		t.Fatalf("got %q, want %q", e.Response, "42")
	}
	if got := c2.Stats().MirrorHits; got != 1 {
		t.Fatalf("MirrorHits = %d, want 1", got)
	}
}

func TestMirror_FailSoft(t *testing.T) {
	// A bogus address: operations must silently miss, never error or panic.
	m := NewMirror("localhost:1", "", 0)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	if _, _, ok := m.Lookup(ctx, "no-such-key"); ok {
		t.Fatal("expected miss on unreachable Redis")
	}
	m.Store(ctx, "k", "v", 1, time.Second) // must not panic

	// A cache wired to a dead mirror still works.
	c := mustNewCache(t, Config{Capacity: 4, Dimension: 4, Mirror: m})
	c.Put(ctx, "q", "r", 1, time.Minute)
	if e, ok := c.GetExact(ctx, "q"); !ok || e.Response != "r" {
		t.Fatalf("expected in-memory hit despite dead mirror, got (%v, %v)", e, ok)
	}
}
