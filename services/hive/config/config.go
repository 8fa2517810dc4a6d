// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the hive service configuration.
//
// Priority: environment > file > defaults. Every tunable named here is
// constructor-time configuration; nothing in the engine packages hardcodes
// these values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the top-level hive service configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Server contains the HTTP surface settings.
	Server ServerConfig `yaml:"server"`

	// Store contains evidence store settings.
	Store StoreConfig `yaml:"store"`

	// Threshold contains acceptance threshold tuning.
	Threshold ThresholdConfig `yaml:"threshold"`

	// Consensus contains consensus round tuning.
	Consensus ConsensusConfig `yaml:"consensus"`

	// Checks contains verification check optimization settings.
	Checks ChecksConfig `yaml:"checks"`
}

// ServerConfig contains the HTTP surface settings.
type ServerConfig struct {
	Port         int    `yaml:"port" validate:"gt=0,lte=65535"`
	OtelEnabled  bool   `yaml:"otel_enabled"`
	OtelEndpoint string `yaml:"otel_endpoint"`
	LogDir       string `yaml:"log_dir"`
}

// StoreConfig contains evidence store settings.
type StoreConfig struct {
	// Path is the badger data directory. Ignored when InMemory is set.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// ThresholdConfig contains acceptance threshold tuning.
type ThresholdConfig struct {
	Initial       float64 `yaml:"initial" validate:"gt=0,lte=1"`
	Min           float64 `yaml:"min" validate:"gt=0,lte=1"`
	Max           float64 `yaml:"max" validate:"gt=0,lte=1,gtefield=Min"`
	RaiseStep     float64 `yaml:"raise_step" validate:"gt=0"`
	LowerStep     float64 `yaml:"lower_step" validate:"gt=0"`
	RaisePassRate float64 `yaml:"raise_pass_rate" validate:"gt=0,lt=1"`
	RaiseScore    float64 `yaml:"raise_score" validate:"gt=0,lt=1"`
	LowerPassRate float64 `yaml:"lower_pass_rate" validate:"gt=0,lt=1"`
	WindowSize    int     `yaml:"window_size" validate:"gt=0"`
}

// ConsensusConfig contains consensus round tuning.
type ConsensusConfig struct {
	Quorum      float64       `yaml:"quorum" validate:"gt=0,lte=1"`
	Deadline    time.Duration `yaml:"deadline" validate:"gt=0"`
	MaxParallel int64         `yaml:"max_parallel" validate:"gt=0"`
	Workers     int           `yaml:"workers" validate:"gt=0"`
}

// ChecksConfig contains verification check optimization settings.
type ChecksConfig struct {
	SkipConfidence float64 `yaml:"skip_confidence" validate:"gt=0,lt=1"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8085,
			OtelEnabled:  false,
			OtelEndpoint: "hive-otel-collector:4317",
		},
		Store: StoreConfig{
			Path: "data/hive",
		},
		Threshold: ThresholdConfig{
			Initial:       0.95,
			Min:           0.85,
			Max:           0.97,
			RaiseStep:     0.01,
			LowerStep:     0.02,
			RaisePassRate: 0.9,
			RaiseScore:    0.96,
			LowerPassRate: 0.5,
			WindowSize:    50,
		},
		Consensus: ConsensusConfig{
			Quorum:      0.67,
			Deadline:    30 * time.Second,
			MaxParallel: 8,
			Workers:     5,
		},
		Checks: ChecksConfig{
			SkipConfidence: 0.95,
		},
	}
}

// Load builds the configuration with priority: env > file > defaults.
//
// Inputs:
//
//	path - Path to a YAML config file. Empty or missing files are fine;
//	  defaults apply.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil when the file exists but is invalid, or validation
//	  fails after merging.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("HIVE_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = i
		}
	}
	if v := os.Getenv("HIVE_LOG_DIR"); v != "" {
		cfg.Server.LogDir = v
	}
	if v := os.Getenv("HIVE_OTEL_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.OtelEnabled = b
		}
	}
	if v := os.Getenv("HIVE_OTEL_ENDPOINT"); v != "" {
		cfg.Server.OtelEndpoint = v
	}
	if v := os.Getenv("HIVE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("HIVE_STORE_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Store.InMemory = b
		}
	}
	if v := os.Getenv("HIVE_THRESHOLD_WINDOW"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Threshold.WindowSize = i
		}
	}
	if v := os.Getenv("HIVE_CONSENSUS_QUORUM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Consensus.Quorum = f
		}
	}
	if v := os.Getenv("HIVE_CONSENSUS_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Consensus.Deadline = d
		}
	}
	if v := os.Getenv("HIVE_CONSENSUS_WORKERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Consensus.Workers = i
		}
	}
	if v := os.Getenv("HIVE_CONSENSUS_MAX_PARALLEL"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Consensus.MaxParallel = i
		}
	}
	if v := os.Getenv("HIVE_SKIP_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Checks.SkipConfidence = f
		}
	}
}
