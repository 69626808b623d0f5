package gorawrcache

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/goRawrCache/cache"
	"github.com/Keksclan/goRawrCache/embedding"
	"github.com/Keksclan/goRawrCache/normalize"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	capacity   int
	defaultTTL time.Duration
	threshold  float64
	dimension  int

	modelName     string
	inProcess     *embedding.ModelConfig
	workerCommand string
	workerArgs    []string
	workerTimeout time.Duration
	spawnRPS      float64
	spawnBurst    int

	normalizer *normalize.Normalizer
	mirror     *cache.Mirror
	counter    TokenCounter
	tracerProv trace.TracerProvider
	logger     *slog.Logger
	nowFunc    func() time.Time
}
