package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// serveConfig is the YAML configuration accepted by serve --config.
type serveConfig struct {
	Root            string        `yaml:"root"`
	Addr            string        `yaml:"addr"`
	Snapshot        string        `yaml:"snapshot"`
	MaxDepth        int           `yaml:"max_depth"`
	ReadConcurrency int           `yaml:"read_concurrency"`
	MaxFileSize     uint64        `yaml:"max_file_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Cache           cacheConfig   `yaml:"cache"`
	RateLimit       rateConfig    `yaml:"rate_limit"`
}

type cacheConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// rateConfig throttles container requests. A zero PerSecond disables it.
type rateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Addr:            "127.0.0.1:8080",
		ReadConcurrency: 4,
		ShutdownTimeout: 10 * time.Second,
		Cache: cacheConfig{
			MaxBytes: 256 << 20,
		},
	}
}

// loadServeConfig reads path over the defaults. Unknown keys are rejected.
func loadServeConfig(path string) (serveConfig, error) {
	cfg := defaultServeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (cfg *serveConfig) validate() error {
	switch {
	case cfg.Root == "":
		return errors.New("config: root is required")
	case cfg.Addr == "":
		return errors.New("config: addr is required")
	case cfg.MaxDepth < 0:
		return errors.New("config: max_depth must be non-negative")
	case cfg.ReadConcurrency < 1:
		return errors.New("config: read_concurrency must be at least 1")
	case cfg.Cache.MaxBytes < 0:
		return errors.New("config: cache.max_bytes must be non-negative")
	case cfg.RateLimit.PerSecond < 0:
		return errors.New("config: rate_limit.per_second must be non-negative")
	case cfg.RateLimit.PerSecond > 0 && cfg.RateLimit.Burst < 1:
		return errors.New("config: rate_limit.burst must be at least 1")
	}
	return nil
}
