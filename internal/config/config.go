// Package config loads the on-disk YAML configuration recognized by the
// dczf CLI, grounded on i5heu-ouroboros-db's internal/config.GetConfig:
// built-in defaults, overridden by a YAML file, overridden again by
// explicit CLI flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/goopsie/dczf/pkg/compressor"
)

// Config holds the settings a dczf invocation can source from config.yaml.
type Config struct {
	ChunkSizeMB int    `yaml:"chunk_size_mb"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the built-in configuration used when no file is present
// and no flags override it.
func Default() Config {
	return Config{
		ChunkSizeMB: compressor.DefaultChunkSizeBytes / (1024 * 1024),
		LogLevel:    "info",
	}
}

// Load reads path and overlays it onto Default(). A missing file is not an
// error: it simply leaves the defaults in place, matching the CLI's
// "config.yaml is optional" contract.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.ChunkSizeMB <= 0 {
		cfg.ChunkSizeMB = Default().ChunkSizeMB
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}

	return cfg, nil
}

// ChunkSizeBytes converts the configured chunk size to bytes for
// compressor.WithChunkSize.
func (c Config) ChunkSizeBytes() uint32 {
	return uint32(c.ChunkSizeMB) * 1024 * 1024
}
