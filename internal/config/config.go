// Package config loads venued's YAML configuration: listen address,
// worker pool size, commission rate, and per-portfolio policy knobs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is venued's top-level configuration.
type Config struct {
	// ListenAddress is the TCP address the netserver binds, e.g.
	// "0.0.0.0:9001".
	ListenAddress string `yaml:"listen_address"`

	// WorkerPoolSize is a worker pool size. It is loaded but not read by
	// venued: the netserver runs a fixed pool of 10 workers, and
	// ProcessAllTrades takes its pool size from each request.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// DefaultCommissionRate is a commission rate for new portfolios. It is
	// loaded but not applied: new portfolios get portfolio's built-in
	// default rate.
	DefaultCommissionRate float64 `yaml:"default_commission_rate"`

	// Policy mirrors portfolio.PolicyOptions. It is loaded but not applied
	// to any portfolio.
	Policy PolicyConfig `yaml:"policy"`
}

// PolicyConfig is the YAML shape of portfolio.PolicyOptions.
type PolicyConfig struct {
	MaxPositionSizeFraction  float64 `yaml:"max_position_size_fraction"`
	RequireNonZeroTotalValue bool    `yaml:"require_non_zero_total_value"`
}

// Default returns the baseline configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddress:         "0.0.0.0:9001",
		WorkerPoolSize:        10,
		DefaultCommissionRate: 0.001,
	}
}

// Load reads and parses a YAML config file at path, starting from
// Default() so any field the file omits keeps its default value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
