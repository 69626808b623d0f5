// Package config loads the YAML configuration for the rawrcache CLI and for
// applications embedding the optimizer with file-driven settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all rawrcache configuration.
type Config struct {
	Capacity   int           `yaml:"capacity"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
	Threshold  float64       `yaml:"threshold"`
	Dimension  int           `yaml:"dimension"`
	Snapshot   string        `yaml:"snapshot"`
	Model      ModelConfig   `yaml:"model"`
	Worker     WorkerConfig  `yaml:"worker"`
	Redis      RedisConfig   `yaml:"redis"`
}

// ModelConfig controls the optional in-process model backend.
type ModelConfig struct {
	Path        string `yaml:"path"`
	ContextSize int    `yaml:"context_size"`
	GPULayers   int    `yaml:"gpu_layers"`
	Threads     int    `yaml:"threads"`
}

// WorkerConfig controls the optional subprocess worker backend.
type WorkerConfig struct {
	Command    string        `yaml:"command"`
	Args       []string      `yaml:"args"`
	ModelName  string        `yaml:"model_name"`
	Timeout    time.Duration `yaml:"timeout"`
	SpawnRPS   float64       `yaml:"spawn_rps"`
	SpawnBurst int           `yaml:"spawn_burst"`
}

// RedisConfig controls the optional exact-match mirror.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Capacity:   1024,
		DefaultTTL: time.Hour,
		Threshold:  0.85,
		Dimension:  384,
		Snapshot:   "rawrcache.db",
	}
}

// Load reads a YAML config file and expands environment variables. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("config: capacity must be > 0, got %d", cfg.Capacity)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("config: threshold must be in [0, 1], got %v", cfg.Threshold)
	}
	return cfg, nil
}
