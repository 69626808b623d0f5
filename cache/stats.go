package cache

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is a point-in-time view of cache statistics, pollable by an
// external telemetry sink.
type Snapshot struct {
	ExactHits    int64
	SemanticHits int64
	Misses       int64
	Puts         int64
	Evictions    int64
	Expirations  int64
	MirrorHits   int64
	Size         int
}

// stats carries both the cheap atomic counters behind Snapshot and the
// prometheus collectors behind MetricsHandler. The registry is
// per-instance, so two caches in one process never fight over
// registration.
type stats struct {
	exactHits    atomic.Int64
	semanticHits atomic.Int64
	misses       atomic.Int64
	puts         atomic.Int64
	evictions    atomic.Int64
	expirations  atomic.Int64
	mirrorHits   atomic.Int64

	reg     *prometheus.Registry
	lookups *prometheus.CounterVec
	putsC   prometheus.Counter
	evictC  prometheus.Counter
	expireC prometheus.Counter
}

func newStats(sizeFn func() int) *stats {
	s := &stats{reg: prometheus.NewRegistry()}

	s.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rawrcache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})
	s.putsC = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rawrcache",
		Name:      "puts_total",
		Help:      "Entries stored.",
	})
	s.evictC = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rawrcache",
		Name:      "evictions_total",
		Help:      "Entries evicted for capacity.",
	})
	s.expireC = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rawrcache",
		Name:      "expirations_total",
		Help:      "Entries removed after TTL elapsed.",
	})
	entries := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "rawrcache",
		Name:      "entries",
		Help:      "Entries currently stored.",
	}, func() float64 { return float64(sizeFn()) })

	s.reg.MustRegister(s.lookups, s.putsC, s.evictC, s.expireC, entries)
	return s
}

func (s *stats) exactHit() {
	s.exactHits.Add(1)
	s.lookups.WithLabelValues("exact_hit").Inc()
}

func (s *stats) semanticHit() {
	s.semanticHits.Add(1)
	s.lookups.WithLabelValues("semantic_hit").Inc()
}

func (s *stats) miss() {
	s.misses.Add(1)
	s.lookups.WithLabelValues("miss").Inc()
}

func (s *stats) put() {
	s.puts.Add(1)
	s.putsC.Inc()
}

func (s *stats) evicted() {
	s.evictions.Add(1)
	s.evictC.Inc()
}

func (s *stats) expire(n int) {
	if n <= 0 {
		return
	}
	s.expirations.Add(int64(n))
	s.expireC.Add(float64(n))
}

func (s *stats) mirrorHit() {
	s.mirrorHits.Add(1)
}

// Stats returns a point-in-time snapshot of the cache counters.
func (c *Cache) Stats() Snapshot {
	return Snapshot{
		ExactHits:    c.stats.exactHits.Load(),
		SemanticHits: c.stats.semanticHits.Load(),
		Misses:       c.stats.misses.Load(),
		Puts:         c.stats.puts.Load(),
		Evictions:    c.stats.evictions.Load(),
		Expirations:  c.stats.expirations.Load(),
		MirrorHits:   c.stats.mirrorHits.Load(),
		Size:         c.Len(),
	}
}

// MetricsHandler returns an http.Handler serving this cache's Prometheus
// metrics.
func (c *Cache) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(c.stats.reg, promhttp.HandlerOpts{})
}
