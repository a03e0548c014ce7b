package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// config holds caskd settings. Flags override file values.
type config struct {
	Addr            string
	Path            string
	ThresholdBytes  int64
	SyncWrites      bool
	CompactInterval time.Duration
}

// fileConfig is the yaml shape; durations are written as strings ("10m").
type fileConfig struct {
	Addr            string `yaml:"addr"`
	Path            string `yaml:"path"`
	ThresholdBytes  int64  `yaml:"thresholdBytes"`
	SyncWrites      bool   `yaml:"syncWrites"`
	CompactInterval string `yaml:"compactInterval"`
}

func defaultConfig() *config {
	return &config{Addr: ":8080"}
}

func loadConfig(path string) (*config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw fileConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := defaultConfig()
	if raw.Addr != "" {
		cfg.Addr = raw.Addr
	}
	cfg.Path = raw.Path
	cfg.ThresholdBytes = raw.ThresholdBytes
	cfg.SyncWrites = raw.SyncWrites
	if raw.CompactInterval != "" {
		interval, err := time.ParseDuration(raw.CompactInterval)
		if err != nil {
			return nil, fmt.Errorf("parse %s: compactInterval: %w", path, err)
		}
		cfg.CompactInterval = interval
	}
	return cfg, nil
}

func (c *config) applyFlags(addr, path string, threshold int64, syncWrites bool, interval time.Duration) {
	if addr != "" {
		c.Addr = addr
	}
	if path != "" {
		c.Path = path
	}
	if threshold > 0 {
		c.ThresholdBytes = threshold
	}
	if syncWrites {
		c.SyncWrites = true
	}
	if interval > 0 {
		c.CompactInterval = interval
	}
}
