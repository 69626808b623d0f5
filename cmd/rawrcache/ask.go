package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	gorawrcache "github.com/Keksclan/goRawrCache"
	"github.com/Keksclan/goRawrCache/cache"
	"github.com/Keksclan/goRawrCache/config"
	"github.com/Keksclan/goRawrCache/embedding"
	"github.com/Keksclan/goRawrCache/store"
)

// newOptimizer builds an Optimizer from the file configuration.
func newOptimizer(cfg *config.Config) (*gorawrcache.Optimizer, error) {
	opts := []gorawrcache.Option{
		gorawrcache.WithCapacity(cfg.Capacity),
		gorawrcache.WithDefaultTTL(cfg.DefaultTTL),
		gorawrcache.WithSemanticThreshold(cfg.Threshold),
		gorawrcache.WithDimension(cfg.Dimension),
	}
	if cfg.Model.Path != "" {
		opts = append(opts, gorawrcache.WithInProcessModel(embedding.ModelConfig{
			Path:        cfg.Model.Path,
			ContextSize: cfg.Model.ContextSize,
			GPULayers:   cfg.Model.GPULayers,
			Threads:     cfg.Model.Threads,
		}))
	}
	if cfg.Worker.Command != "" {
		opts = append(opts,
			gorawrcache.WithWorkerCommand(cfg.Worker.Command, cfg.Worker.Args...),
			gorawrcache.WithModelName(cfg.Worker.ModelName),
			gorawrcache.WithWorkerTimeout(cfg.Worker.Timeout),
		)
		if cfg.Worker.SpawnRPS > 0 {
			opts = append(opts, gorawrcache.WithSpawnRate(cfg.Worker.SpawnRPS, cfg.Worker.SpawnBurst))
		}
	}
	if cfg.Redis.Addr != "" {
		opts = append(opts, gorawrcache.WithMirror(
			cache.NewMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)))
	}
	return gorawrcache.New(opts...)
}

// loadSnapshot restores the snapshot file into the optimizer, if one exists.
func loadSnapshot(opt *gorawrcache.Optimizer, path string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.Load()
	if err != nil {
		return err
	}
	opt.Import(entries)
	return nil
}

// saveSnapshot writes the optimizer's live entries back to the snapshot file.
func saveSnapshot(opt *gorawrcache.Optimizer, path string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(opt.Export())
}

func newAskCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Resolve a query against the snapshot-backed cache",
		Long: `Resolve a query against the cache restored from the snapshot file.
On a hit the cached response is printed. On a miss the response is read
from stdin (pipe it in), cached, and the snapshot updated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			opt, err := newOptimizer(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = opt.Close() }()

			if err := loadSnapshot(opt, cfg.Snapshot); err != nil {
				return err
			}

			missed := false
			res, err := opt.Resolve(cmd.Context(), args[0], func(_ context.Context, _ string) (string, int, error) {
				missed = true
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return "", 0, fmt.Errorf("read response from stdin: %w", err)
				}
				response := strings.TrimRight(string(data), "\n")
				if response == "" {
					return "", 0, errors.New("cache miss and no response piped on stdin")
				}
				return response, 0, nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Response)
			if res.CacheHit {
				fmt.Fprintf(os.Stderr, "%s hit (similarity %.3f, %d tokens saved)\n",
					res.Kind, res.Similarity, res.TokenCost)
			}

			if missed {
				return saveSnapshot(opt, cfg.Snapshot)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rawrcache.yaml", "path to config file")
	return cmd
}
