// Package config holds the settings of a solver run. Values come from
// defaults, then an optional YAML file, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/makespan/internal/heuristics"
	"github.com/me/makespan/internal/swapper"
	"github.com/me/makespan/pkg/model"
)

// ServerConfig holds configuration for the optional status server.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, empty disables the server
}

// OutputConfig controls where final solutions are written.
type OutputConfig struct {
	Write         bool   `yaml:"write"`
	DirectoryName string `yaml:"directory_name"`
	SeparateFiles bool   `yaml:"separate_files"`
	DBPath        string `yaml:"db"`      // SQLite result store, empty disables it
	PrintMetrics  bool   `yaml:"metrics"` // Print the per-task run summary to stderr
}

// RunConfig holds everything the solve command needs.
type RunConfig struct {
	Path         string        `yaml:"path"`
	Algorithms   []string      `yaml:"algorithms"`
	RFConfigs    []string      `yaml:"rf_configs"`
	SwapConfigs  []string      `yaml:"swap_configs"`
	NumThreads   int           `yaml:"num_threads"`
	NumSolutions int           `yaml:"num_solutions"`
	Timeout      time.Duration `yaml:"timeout"` // 0 runs until the optimum is proven
	Seed         string        `yaml:"seed"`    // hex, empty draws one at random
	Opt          uint32        `yaml:"opt"`     // known optimum, overrides the instance file

	Output OutputConfig `yaml:"output"`
	Server ServerConfig `yaml:"server"`
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		NumThreads:   8,
		NumSolutions: 50,
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *RunConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Resolved is a validated RunConfig with its strings parsed.
type Resolved struct {
	Algorithms  []model.Algorithm
	RFConfigs   []heuristics.RFConfig
	SwapConfigs []swapper.Config
}

// Resolve validates cfg and parses its algorithm and solver config strings.
// Swap without explicit configs runs the default swap config.
func (c *RunConfig) Resolve() (*Resolved, error) {
	if c.Path == "" {
		return nil, errors.New("no input path given")
	}
	if c.NumThreads < 1 {
		return nil, fmt.Errorf("num_threads must be >= 1 (got %d)", c.NumThreads)
	}
	if c.NumSolutions < 1 {
		return nil, fmt.Errorf("num_solutions must be >= 1 (got %d)", c.NumSolutions)
	}
	if c.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", c.Timeout)
	}
	if len(c.Algorithms) == 0 {
		return nil, errors.New("no algorithm selected")
	}

	r := &Resolved{}
	seen := map[model.Algorithm]bool{}
	swap := false
	for _, name := range c.Algorithms {
		alg, err := model.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		if seen[alg] {
			continue
		}
		seen[alg] = true
		if alg == model.AlgorithmSwap {
			swap = true
			continue
		}
		r.Algorithms = append(r.Algorithms, alg)
	}

	if len(c.RFConfigs) > 0 && !seen[model.AlgorithmRF] {
		return nil, errors.New("rf_configs given without the RF algorithm")
	}
	for _, s := range c.RFConfigs {
		cfg, err := heuristics.ParseRFConfig(s)
		if err != nil {
			return nil, fmt.Errorf("rf config %q: %w", s, err)
		}
		r.RFConfigs = append(r.RFConfigs, cfg)
	}

	if len(c.SwapConfigs) > 0 && !swap {
		return nil, errors.New("swap_configs given without the Swap algorithm")
	}
	for _, s := range c.SwapConfigs {
		cfg, err := swapper.ParseConfig(s)
		if err != nil {
			return nil, fmt.Errorf("swap config %q: %w", s, err)
		}
		r.SwapConfigs = append(r.SwapConfigs, cfg)
	}
	if swap && len(r.SwapConfigs) == 0 {
		r.SwapConfigs = []swapper.Config{swapper.DefaultConfig()}
	}
	return r, nil
}
