package cache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Keksclan/goRawrCache/normalize"
)

// simEpsilon is the float tolerance under which two similarities count as a
// tie and usage statistics decide the winner.
const simEpsilon = 1e-6

// Config holds Cache construction parameters.
type Config struct {
	// Capacity is the maximum number of entries. Required, > 0.
	Capacity int

	// DefaultTTL applies to entries stored without an explicit TTL. Zero
	// means entries never expire by default.
	DefaultTTL time.Duration

	// Dimension is the embedding dimension D. Required, > 0. Every stored
	// vector has exactly this length.
	Dimension int

	// Normalizer canonicalizes queries into keys. Nil uses the default
	// table.
	Normalizer *normalize.Normalizer

	// Mirror optionally write-throughs exact-match responses to Redis and
	// consults it on exact misses. Strictly fail-soft.
	Mirror *Mirror

	// Logger receives eviction/expiry debug logging. Nil uses
	// slog.Default().
	Logger *slog.Logger

	// NowFunc overrides the clock, for TTL tests.
	NowFunc func() time.Time
}

// Cache is the semantic response cache. All methods are safe for concurrent
// use. Embedding computation — which may block for a worker subprocess's
// full timeout — always happens outside the store mutex, so a slow backend
// round trip never delays unrelated cache operations.
type Cache struct {
	source Vectorizer
	norm   *normalize.Normalizer
	mirror *Mirror
	log    *slog.Logger
	stats  *stats

	capacity   int
	defaultTTL time.Duration
	dim        int
	nowFunc    func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element // key → element; element value is *Entry
	lru     *list.List               // front = most recently used
}

// New creates a Cache over the given embedding source.
func New(source Vectorizer, cfg Config) (*Cache, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil vectorizer", ErrInvalidConfig)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d (must be > 0)", ErrInvalidConfig, cfg.Capacity)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d (must be > 0)", ErrInvalidConfig, cfg.Dimension)
	}
	if cfg.DefaultTTL < 0 {
		return nil, fmt.Errorf("%w: negative default TTL", ErrInvalidConfig)
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}

	c := &Cache{
		source:     source,
		norm:       cfg.Normalizer,
		mirror:     cfg.Mirror,
		log:        cfg.Logger,
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		dim:        cfg.Dimension,
		nowFunc:    cfg.NowFunc,
		entries:    make(map[string]*list.Element, cfg.Capacity),
		lru:        list.New(),
	}
	c.stats = newStats(c.lockedLen)
	return c, nil
}

// GetExact returns the live entry whose key equals the normalized query,
// bumping its usage bookkeeping. O(1) amortized.
func (c *Cache) GetExact(ctx context.Context, query string) (Entry, bool) {
	key := c.norm.Normalize(query)
	now := c.nowFunc()

	c.mu.Lock()
	if e, ok := c.lookup(key, now); ok {
		out := e.clone()
		c.mu.Unlock()
		c.stats.exactHit()
		return out, true
	}
	c.mu.Unlock()

	// Exact miss: a warm mirror may still know the response.
	if entry, ok := c.fromMirror(ctx, key, query); ok {
		c.stats.exactHit()
		return entry, true
	}

	c.stats.miss()
	return Entry{}, false
}

// GetSemantic returns the best live entry whose cosine similarity to the
// query embedding is at least threshold, together with that similarity.
// Ties within a float epsilon go to the higher usage count, then to the
// more recently used entry. O(live entries × dimension).
func (c *Cache) GetSemantic(ctx context.Context, query string, threshold float64) (Entry, float64, bool) {
	key := c.norm.Normalize(query)
	vec := c.source.Vector(ctx, key) // outside the lock: may block on a worker
	now := c.nowFunc()

	c.mu.Lock()
	var best *Entry
	var bestSim float64
	for el := c.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*Entry)
		if e.expired(now) {
			continue
		}
		sim := cosine(vec, e.Embedding)
		if sim < threshold {
			continue
		}
		if best == nil || better(sim, e, bestSim, best) {
			best, bestSim = e, sim
		}
	}
	if best == nil {
		c.mu.Unlock()
		c.stats.miss()
		return Entry{}, 0, false
	}

	best.UsageCount++
	best.LastUsedAt = now
	c.lru.MoveToFront(c.entries[best.Key])
	out := best.clone()
	c.mu.Unlock()

	c.stats.semanticHit()
	return out, bestSim, true
}

// better reports whether (sim, e) beats the current (bestSim, best) under
// the tie-break order: similarity, then usage count on a near-tie, then
// recency.
func better(sim float64, e *Entry, bestSim float64, best *Entry) bool {
	switch d := sim - bestSim; {
	case d > simEpsilon:
		return true
	case d < -simEpsilon:
		return false
	}
	if e.UsageCount != best.UsageCount {
		return e.UsageCount > best.UsageCount
	}
	return e.LastUsedAt.After(best.LastUsedAt)
}

// Put stores a response under the normalized query. An existing key is
// overwritten in place (usage count reset, creation time refreshed). At
// capacity the least-recently-used entry is evicted, preferring an
// already-expired one. ttl zero applies the cache default; a negative ttl
// stores the entry without expiry.
//
// Put cannot fail: embedding degradation yields a fallback vector, and the
// mirror write is fail-soft.
func (c *Cache) Put(ctx context.Context, query, response string, tokenCost int, ttl time.Duration) {
	key := c.norm.Normalize(query)
	vec := c.source.Vector(ctx, key) // outside the lock
	now := c.nowFunc()

	switch {
	case ttl == 0:
		ttl = c.defaultTTL
	case ttl < 0:
		ttl = 0
	}
	if tokenCost < 0 {
		tokenCost = 0
	}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*Entry)
		e.Query = query
		e.Response = response
		e.Embedding = vec
		e.TokenCost = tokenCost
		e.CreatedAt = now
		e.TTL = ttl
		e.UsageCount = 0
		e.LastUsedAt = now
		c.lru.MoveToFront(el)
	} else {
		if c.lru.Len() >= c.capacity {
			c.evict(now)
		}
		e := &Entry{
			Key:        key,
			Query:      query,
			Response:   response,
			Embedding:  vec,
			TokenCost:  tokenCost,
			CreatedAt:  now,
			TTL:        ttl,
			LastUsedAt: now,
		}
		c.entries[key] = c.lru.PushFront(e)
	}
	c.mu.Unlock()

	c.stats.put()
	if c.mirror != nil {
		c.mirror.Store(ctx, key, response, tokenCost, ttl)
	}
}

// PurgeExpired removes every TTL-elapsed entry and returns how many were
// removed. Lookups already treat expired entries as absent; purging just
// reclaims their memory eagerly.
func (c *Cache) PurgeExpired() int {
	now := c.nowFunc()

	c.mu.Lock()
	var removed int
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		if e := el.Value.(*Entry); e.expired(now) {
			c.remove(el)
			removed++
		}
		el = next
	}
	c.mu.Unlock()

	c.stats.expire(removed)
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element, c.capacity)
	c.lru.Init()
	c.mu.Unlock()
}

// Len returns the number of physically present entries, expired included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Export returns a copy of every live entry, most recently used first.
// Intended for snapshot persistence.
func (c *Cache) Export() []Entry {
	now := c.nowFunc()

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		if e := el.Value.(*Entry); !e.expired(now) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Import restores previously exported entries, preserving their creation
// times and usage counts. Entries are inserted least recently used first so
// the exported order survives; expired or wrong-dimension entries are
// skipped, and capacity still holds. Returns how many entries were
// restored.
func (c *Cache) Import(entries []Entry) int {
	now := c.nowFunc()

	c.mu.Lock()
	defer c.mu.Unlock()
	var restored int
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Key == "" || len(e.Embedding) != c.dim || e.expired(now) {
			continue
		}
		if el, ok := c.entries[e.Key]; ok {
			c.remove(el)
		}
		if c.lru.Len() >= c.capacity {
			c.evict(now)
		}
		ec := e.clone()
		c.entries[e.Key] = c.lru.PushFront(&ec)
		restored++
	}
	return restored
}

// lookup returns the live entry for key, bumping its bookkeeping. An
// expired entry is removed on sight. Must be called with c.mu held.
func (c *Cache) lookup(key string, now time.Time) (*Entry, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*Entry)
	if e.expired(now) {
		c.remove(el)
		c.stats.expire(1)
		return nil, false
	}
	e.UsageCount++
	e.LastUsedAt = now
	c.lru.MoveToFront(el)
	return e, true
}

// fromMirror resurrects an exact match from the mirror after a restart:
// the response is re-embedded (outside the lock) and re-inserted as a fresh
// entry.
func (c *Cache) fromMirror(ctx context.Context, key, query string) (Entry, bool) {
	if c.mirror == nil {
		return Entry{}, false
	}
	response, tokenCost, ok := c.mirror.Lookup(ctx, key)
	if !ok {
		return Entry{}, false
	}
	c.stats.mirrorHit()
	c.Put(ctx, query, response, tokenCost, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		return el.Value.(*Entry).clone(), true
	}
	return Entry{}, false
}

// evict removes one entry to make room: the least recently used expired
// entry if any entry is expired, otherwise the least recently used entry.
// Must be called with c.mu held.
func (c *Cache) evict(now time.Time) {
	for el := c.lru.Back(); el != nil; el = el.Prev() {
		if el.Value.(*Entry).expired(now) {
			c.remove(el)
			c.stats.evicted()
			return
		}
	}
	if el := c.lru.Back(); el != nil {
		c.log.Debug("evicting least recently used entry", "key", el.Value.(*Entry).Key)
		c.remove(el)
		c.stats.evicted()
	}
}

// remove deletes an element from both index and LRU list. Must be called
// with c.mu held.
func (c *Cache) remove(el *list.Element) {
	delete(c.entries, el.Value.(*Entry).Key)
	c.lru.Remove(el)
}

// lockedLen is the size callback handed to the stats gauge.
func (c *Cache) lockedLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
