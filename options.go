package gorawrcache

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/goRawrCache/cache"
	"github.com/Keksclan/goRawrCache/embedding"
	"github.com/Keksclan/goRawrCache/normalize"
)

// Option configures an Optimizer.
type Option func(*config)

// WithCapacity sets the maximum number of cached entries.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithDefaultTTL sets the TTL applied to entries stored without an explicit
// one. Zero means entries never expire by default.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *config) { c.defaultTTL = ttl }
}

// WithSemanticThreshold sets the minimum cosine similarity for a semantic
// hit. Must be in (0, 1]; New rejects anything else.
func WithSemanticThreshold(t float64) Option {
	return func(c *config) { c.threshold = t }
}

// WithDimension sets the embedding dimension shared by every backend and
// every stored entry.
func WithDimension(d int) Option {
	return func(c *config) { c.dimension = d }
}

// WithModelName sets the model name sent to the worker subprocess.
func WithModelName(name string) Option {
	return func(c *config) { c.modelName = name }
}

// WithInProcessModel enables the in-process model backend. Construction
// failure (typically a binary built without native model support) is not
// fatal: the backend is logged and omitted, and the chain continues with the
// remaining backends.
func WithInProcessModel(cfg embedding.ModelConfig) Option {
	return func(c *config) { c.inProcess = &cfg }
}

// WithWorkerCommand enables the subprocess worker backend with the given
// binary and arguments.
func WithWorkerCommand(command string, args ...string) Option {
	return func(c *config) {
		c.workerCommand = command
		c.workerArgs = args
	}
}

// WithWorkerTimeout sets the per-call wall-clock budget for the worker
// subprocess.
func WithWorkerTimeout(d time.Duration) Option {
	return func(c *config) { c.workerTimeout = d }
}

// WithSpawnRate limits how often worker subprocesses may be started, in
// spawns per second with the given burst. Zero rps means unlimited.
func WithSpawnRate(rps float64, burst int) Option {
	return func(c *config) {
		c.spawnRPS = rps
		c.spawnBurst = burst
	}
}

// WithNormalizer overrides the query normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *config) { c.normalizer = n }
}

// WithMirror attaches a Redis mirror for exact-match persistence across
// restarts. The mirror is strictly fail-soft.
func WithMirror(m *cache.Mirror) Option {
	return func(c *config) { c.mirror = m }
}

// WithTokenCounter overrides the token estimator used when a compute
// function reports no cost.
func WithTokenCounter(f TokenCounter) Option {
	return func(c *config) { c.counter = f }
}

// WithTracerProvider enables OpenTelemetry spans around Resolve.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProv = tp }
}

// WithLogger sets the logger used across the optimizer, cache and backend
// chain.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithNowFunc overrides the clock, for TTL tests.
func WithNowFunc(now func() time.Time) Option {
	return func(c *config) { c.nowFunc = now }
}
