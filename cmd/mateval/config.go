package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mateval configuration file (~/.config/mateval/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	RateLimit     *float64 `yaml:"rate_limit"`
	Burst         *int     `yaml:"burst"`
	Seed          *uint64  `yaml:"seed"`

	Device DeviceConfig `yaml:"device"`
}

type DeviceConfig struct {
	MaxThreadsPerBlock         *int `yaml:"max_threads_per_block"`
	MultiProcessors            *int `yaml:"multiprocessors"`
	MaxBlocksPerMultiProcessor *int `yaml:"max_blocks_per_multiprocessor"`
	Workers                    *int `yaml:"workers"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mateval", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyGlobalConfig applies config file defaults to the root flags when the
// corresponding CLI flag was not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	setInt(c, "threads-per-block", cfg.Device.MaxThreadsPerBlock, &threadsPerBlock)
	setInt(c, "multiprocessors", cfg.Device.MultiProcessors, &multiProcessors)
	setInt(c, "blocks-per-mp", cfg.Device.MaxBlocksPerMultiProcessor, &blocksPerMP)
	setInt(c, "workers", cfg.Device.Workers, &workers)
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rateLimit *float64, burst *int, seed *uint64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	setInt(c, "burst", cfg.Burst, burst)
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
}

func setInt(c *cli.Command, flag string, v *int, dst *int) {
	if v != nil && !c.IsSet(flag) {
		*dst = *v
	}
}
