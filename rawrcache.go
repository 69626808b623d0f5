// Package gorawrcache caches expensive text-in/text-out computations behind
// exact and semantic lookup. A [Resolve] call first tries the normalized
// query verbatim, then by embedding similarity, and only then runs the
// caller's compute function, storing the result for the next caller.
//
// Embeddings come from a degradable backend chain — an optional in-process
// model, an optional subprocess worker, and a deterministic hash fallback —
// so cache operations keep working when every model backend is down; only
// match quality degrades.
//
//	opt, err := gorawrcache.New(
//		gorawrcache.WithCapacity(4096),
//		gorawrcache.WithWorkerCommand("rawr-embed-worker"),
//	)
//	...
//	res, err := opt.Resolve(ctx, prompt, callLLM)
package gorawrcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/goRawrCache/cache"
	"github.com/Keksclan/goRawrCache/embedding"
	"github.com/Keksclan/goRawrCache/ratelimit"
	"github.com/Keksclan/goRawrCache/tracing"
)

// ErrInvalidThreshold is returned by New for a semantic threshold outside
// (0, 1].
var ErrInvalidThreshold = errors.New("rawrcache: semantic threshold must be in (0, 1]")

// ErrNilCompute is returned by Resolve when no compute function is supplied
// and the query misses the cache.
var ErrNilCompute = errors.New("rawrcache: nil compute function")

// ComputeFunc produces the response for a query that missed the cache,
// returning the response text and its cost in tokens. A non-positive cost
// means unknown; the optimizer estimates one. Errors propagate out of
// Resolve unchanged and nothing is cached.
type ComputeFunc func(ctx context.Context, query string) (response string, tokenCost int, err error)

// TokenCounter estimates the token cost of a text.
type TokenCounter func(s string) int

// HitKind says which lookup tier satisfied a Resolve call.
type HitKind int

const (
	// HitMiss means the compute function ran.
	HitMiss HitKind = iota

	// HitExact means the normalized query matched a cached key verbatim.
	HitExact

	// HitSemantic means a cached entry matched by embedding similarity.
	HitSemantic
)

// String returns the lowercase kind name.
func (k HitKind) String() string {
	switch k {
	case HitExact:
		return "exact"
	case HitSemantic:
		return "semantic"
	default:
		return "miss"
	}
}

// Result is the outcome of a Resolve call.
type Result struct {
	// Response is the cached or freshly computed response.
	Response string

	// TokenCost is the compute cost of the response in tokens. On a hit,
	// this is what the caller just avoided spending.
	TokenCost int

	// CacheHit reports whether the compute function was skipped.
	CacheHit bool

	// Kind says which tier answered.
	Kind HitKind

	// Similarity is the cosine similarity of a semantic hit. 1 for exact
	// hits, 0 for misses.
	Similarity float64
}

// Optimizer ties the semantic cache to the embedding backend chain and a
// compute budget. All methods are safe for concurrent use.
type Optimizer struct {
	cache     *cache.Cache
	selector  *embedding.Selector
	inproc    *embedding.InProcess
	threshold float64
	counter   TokenCounter
	tracer    trace.Tracer
	log       *slog.Logger
}

// New creates an Optimizer. Without backend options the embedding chain is
// the deterministic fallback alone: everything works, exact hits are
// reliable, and semantic matching is only as good as hashed token overlap.
func New(opts ...Option) (*Optimizer, error) {
	cfg := config{
		capacity:   DefaultCapacity,
		defaultTTL: DefaultTTL,
		threshold:  DefaultSemanticThreshold,
		dimension:  DefaultDimension,
		counter:    CountTokens,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.threshold <= 0 || cfg.threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, cfg.threshold)
	}

	o := &Optimizer{
		threshold: cfg.threshold,
		counter:   cfg.counter,
		log:       cfg.logger,
	}

	var backends []embedding.Backend
	if cfg.inProcess != nil {
		mc := *cfg.inProcess
		if mc.Dimension == 0 {
			mc.Dimension = cfg.dimension
		}
		ip, err := embedding.NewInProcess(mc)
		if err != nil {
			// Not fatal: the chain degrades to the remaining backends.
			cfg.logger.Warn("in-process model unavailable, continuing without it",
				"path", mc.Path, "error", err)
		} else {
			o.inproc = ip
			backends = append(backends, ip)
		}
	}
	if cfg.workerCommand != "" {
		var spawn *ratelimit.Limiter
		if cfg.spawnRPS > 0 {
			spawn = ratelimit.NewLimiter(cfg.spawnRPS, cfg.spawnBurst)
		}
		w, err := embedding.NewWorker(embedding.WorkerConfig{
			Command:   cfg.workerCommand,
			Args:      cfg.workerArgs,
			Model:     cfg.modelName,
			Timeout:   cfg.workerTimeout,
			Dimension: cfg.dimension,
			Spawn:     spawn,
		})
		if err != nil {
			return nil, fmt.Errorf("rawrcache: worker backend: %w", err)
		}
		backends = append(backends, w)
	}

	o.selector = embedding.NewSelector(cfg.dimension, backends,
		embedding.WithSelectorLogger(cfg.logger))

	memo, err := embedding.NewMemo(o.selector, int64(cfg.capacity))
	if err != nil {
		return nil, fmt.Errorf("rawrcache: embedding memo: %w", err)
	}

	o.cache, err = cache.New(memo, cache.Config{
		Capacity:   cfg.capacity,
		DefaultTTL: cfg.defaultTTL,
		Dimension:  cfg.dimension,
		Normalizer: cfg.normalizer,
		Mirror:     cfg.mirror,
		Logger:     cfg.logger,
		NowFunc:    cfg.nowFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("rawrcache: %w", err)
	}

	if cfg.tracerProv != nil {
		o.tracer = tracing.Tracer(cfg.tracerProv)
	}
	return o, nil
}

// Resolve answers the query from the cache when it can and runs compute when
// it must. Lookup order is exact match, then semantic match at the
// configured threshold, then compute. A computed response is stored before
// returning; a compute error propagates unchanged and nothing is stored.
func (o *Optimizer) Resolve(ctx context.Context, query string, compute ComputeFunc) (res Result, err error) {
	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "cache.resolve")
		defer func() {
			span.SetAttributes(
				attribute.String("cache.hit_kind", res.Kind.String()),
				attribute.Float64("cache.similarity", res.Similarity),
				attribute.Int("cache.token_cost", res.TokenCost),
			)
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()
	}

	if e, ok := o.cache.GetExact(ctx, query); ok {
		return Result{
			Response:   e.Response,
			TokenCost:  e.TokenCost,
			CacheHit:   true,
			Kind:       HitExact,
			Similarity: 1,
		}, nil
	}

	if e, sim, ok := o.cache.GetSemantic(ctx, query, o.threshold); ok {
		return Result{
			Response:   e.Response,
			TokenCost:  e.TokenCost,
			CacheHit:   true,
			Kind:       HitSemantic,
			Similarity: sim,
		}, nil
	}

	if compute == nil {
		return Result{}, ErrNilCompute
	}
	response, cost, err := compute(ctx, query)
	if err != nil {
		return Result{}, err
	}
	if cost <= 0 {
		cost = o.counter(response)
	}
	o.cache.Put(ctx, query, response, cost, 0)
	return Result{Response: response, TokenCost: cost, Kind: HitMiss}, nil
}

// Put stores a response directly, bypassing compute. ttl zero applies the
// default; a negative ttl stores without expiry.
func (o *Optimizer) Put(ctx context.Context, query, response string, tokenCost int, ttl time.Duration) {
	if tokenCost <= 0 {
		tokenCost = o.counter(response)
	}
	o.cache.Put(ctx, query, response, tokenCost, ttl)
}

// Stats returns a snapshot of the cache counters.
func (o *Optimizer) Stats() cache.Snapshot { return o.cache.Stats() }

// MetricsHandler serves this optimizer's Prometheus metrics.
func (o *Optimizer) MetricsHandler() http.Handler { return o.cache.MetricsHandler() }

// Healthy reports, per configured backend, whether its health gate currently
// admits calls. The terminal fallback is always available and not listed.
func (o *Optimizer) Healthy() map[string]bool { return o.selector.Healthy() }

// PurgeExpired removes TTL-elapsed entries and returns how many went.
func (o *Optimizer) PurgeExpired() int { return o.cache.PurgeExpired() }

// Clear removes all cached entries.
func (o *Optimizer) Clear() { o.cache.Clear() }

// Export returns a copy of every live entry for snapshot persistence.
func (o *Optimizer) Export() []cache.Entry { return o.cache.Export() }

// Import restores previously exported entries and returns how many were
// accepted.
func (o *Optimizer) Import(entries []cache.Entry) int { return o.cache.Import(entries) }

// Close releases the in-process model, if one was loaded.
func (o *Optimizer) Close() error {
	if o.inproc != nil {
		return o.inproc.Close()
	}
	return nil
}
