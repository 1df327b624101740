// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads analyzer settings from the environment and the
// optional pillar-weights YAML file, and hot-reloads the weights file on
// change.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/fanout"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/ingest"
)

// Settings is the full analyzer configuration. Everything comes from the
// environment with documented defaults; only pillar weights live in a file
// so they can be tuned mid-call.
type Settings struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// APIToken guards every route except /health and /metrics. Empty
	// disables auth (local development).
	APIToken string

	// LLMBackend selects the scoring backend: "openai", "anthropic",
	// "ollama" or "llamacpp".
	LLMBackend string

	// WeightsPath points at the optional pillar-weights YAML file. Empty
	// means defaults only, no watcher.
	WeightsPath string

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables
	// trace export.
	OTLPEndpoint string

	Throttle ingest.Config
	Fanout   fanout.Config

	// SweepInterval and SessionMaxIdle drive the abandoned-session sweeper.
	SweepInterval  time.Duration
	SessionMaxIdle time.Duration

	// RateLimitRPS and RateLimitBurst bound the per-instance fragment
	// ingest rate. Zero RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// FromEnv assembles Settings from the environment. Missing variables fall
// back to documented defaults with a warning; nothing here is fatal.
func FromEnv() Settings {
	s := Settings{
		ListenAddr:   envString("COPILOT_LISTEN_ADDR", ":12400"),
		APIToken:     os.Getenv("COPILOT_API_TOKEN"),
		LLMBackend:   envString("COPILOT_LLM_BACKEND", "ollama"),
		WeightsPath:  os.Getenv("COPILOT_WEIGHTS_PATH"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		Throttle: ingest.Config{
			MinCycleInterval:  envDuration("COPILOT_MIN_CYCLE_INTERVAL", ingest.DefaultConfig().MinCycleInterval),
			StuckCycleCeiling: envDuration("COPILOT_STUCK_CYCLE_CEILING", ingest.DefaultConfig().StuckCycleCeiling),
			MaxWindowBytes:    envInt("COPILOT_MAX_WINDOW_BYTES", ingest.DefaultConfig().MaxWindowBytes),
		},
		Fanout: fanout.Config{
			PillarTimeout:     envDuration("COPILOT_PILLAR_TIMEOUT", fanout.DefaultConfig().PillarTimeout),
			AuxTimeout:        envDuration("COPILOT_AUX_TIMEOUT", fanout.DefaultConfig().AuxTimeout),
			EnrichTimeout:     envDuration("COPILOT_ENRICH_TIMEOUT", fanout.DefaultConfig().EnrichTimeout),
			RecentWindowBytes: envInt("COPILOT_RECENT_WINDOW_BYTES", fanout.DefaultConfig().RecentWindowBytes),
		},

		SweepInterval:  envDuration("COPILOT_SWEEP_INTERVAL", time.Minute),
		SessionMaxIdle: envDuration("COPILOT_SESSION_MAX_IDLE", 30*time.Minute),

		RateLimitRPS:   envFloat("COPILOT_RATE_LIMIT_RPS", 20),
		RateLimitBurst: envInt("COPILOT_RATE_LIMIT_BURST", 40),
	}

	if s.APIToken == "" {
		slog.Warn("COPILOT_API_TOKEN not set, authentication disabled")
	}
	return s
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Warn("Environment variable not set, defaulting", "key", key, "value", fallback)
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Invalid duration, using the default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer, using the default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("Invalid float, using the default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

// =============================================================================
// Pillar Weights File
// =============================================================================

// weightsFile is the YAML shape of the pillar-weights file:
//
//	weights:
//	  - pillar: 1
//	    weight: 2.5
type weightsFile struct {
	Weights []datatypes.WeightOverride `yaml:"weights"`
}

// LoadWeights reads the weights file and returns the effective
// configuration. Unknown pillars and negative weights in the file are
// ignored, matching the API's weight-update semantics.
func LoadWeights(path string) (datatypes.WeightConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the weights file: %w", err)
	}
	var wf weightsFile
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse the weights file: %w", err)
	}
	return datatypes.NewWeightConfig(wf.Weights), nil
}
