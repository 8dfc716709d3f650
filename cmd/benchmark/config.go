package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/microsoft/hat/bench"
)

// config mirrors the benchmark flags for file-based runs. Flags given
// explicitly on the command line take precedence over the file.
type config struct {
	BatchSize            int64   `yaml:"batch_size"`
	MinTimeInSec         float64 `yaml:"min_time_in_sec"`
	MinTimingIterations  int64   `yaml:"min_timing_iterations"`
	InputSetsMinimumSize float64 `yaml:"input_sets_minimum_size_MB"`
	WarmupIterations     int64   `yaml:"warmup_iterations"`
}

func loadConfig(path string) (*config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *config) apply(opts bench.Options, set map[string]bool) bench.Options {
	if c.BatchSize > 0 && !set["batch_size"] {
		opts.BatchSize = c.BatchSize
	}
	if c.MinTimeInSec > 0 && !set["min_time_in_sec"] {
		opts.MinTime = time.Duration(c.MinTimeInSec * float64(time.Second))
	}
	if c.MinTimingIterations > 0 && !set["min_timing_iterations"] {
		opts.MinIterations = c.MinTimingIterations
	}
	if c.InputSetsMinimumSize > 0 && !set["input_sets_minimum_size_MB"] {
		opts.MinWorkingSetBytes = int64(c.InputSetsMinimumSize * float64(1<<20))
	}
	if c.WarmupIterations > 0 {
		opts.WarmupIterations = c.WarmupIterations
	}
	return opts
}
