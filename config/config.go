// Package config loads sched.Options from a YAML file, for callers that
// would rather ship a tunable config file than hard-code pool sizes.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/janneremes/fibersched/sched"
)

// File mirrors sched.Options field-for-field using YAML-friendly types
// (duration as a string) so a config file can be hand-edited.
type File struct {
	FiberPoolSize            int    `yaml:"fiber_pool_size"`
	FiberStackSize           int    `yaml:"fiber_stack_size"`
	WorkerThreadCount        int    `yaml:"worker_thread_count"`
	TaskQueueInitialCapacity int    `yaml:"task_queue_initial_capacity"`
	IdleBackoff              string `yaml:"idle_backoff"`
	LogLevel                 string `yaml:"log_level"`
}

// Load reads path and returns the corresponding sched.Options. Fields left
// zero in the file fall back to sched's own defaults; LogLevel builds a zap
// logger at that level, defaulting to "info".
func Load(path string) (sched.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sched.Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return sched.Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	opts := sched.Options{
		FiberPoolSize:            f.FiberPoolSize,
		FiberStackSize:           f.FiberStackSize,
		WorkerThreadCount:        f.WorkerThreadCount,
		TaskQueueInitialCapacity: f.TaskQueueInitialCapacity,
	}

	if f.IdleBackoff != "" {
		d, err := time.ParseDuration(f.IdleBackoff)
		if err != nil {
			return sched.Options{}, fmt.Errorf("config: idle_backoff: %w", err)
		}
		opts.IdleBackoff = d
	}

	logger, err := buildLogger(f.LogLevel)
	if err != nil {
		return sched.Options{}, fmt.Errorf("config: log_level: %w", err)
	}
	opts.Logger = logger

	return opts, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
