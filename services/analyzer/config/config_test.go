// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

func TestFromEnvDefaults(t *testing.T) {
	s := FromEnv()
	assert.Equal(t, ":12400", s.ListenAddr)
	assert.Equal(t, 4*time.Second, s.Throttle.MinCycleInterval)
	assert.Equal(t, 8*1024, s.Throttle.MaxWindowBytes)
	assert.Equal(t, time.Minute, s.SweepInterval)
}

func TestFromEnvOverridesAndBadValues(t *testing.T) {
	t.Setenv("COPILOT_MIN_CYCLE_INTERVAL", "10s")
	t.Setenv("COPILOT_MAX_WINDOW_BYTES", "not-a-number")
	t.Setenv("COPILOT_LISTEN_ADDR", ":9000")

	s := FromEnv()
	assert.Equal(t, ":9000", s.ListenAddr)
	assert.Equal(t, 10*time.Second, s.Throttle.MinCycleInterval)
	// A malformed value falls back instead of failing startup.
	assert.Equal(t, 8*1024, s.Throttle.MaxWindowBytes)
}

func TestLoadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	content := `
weights:
  - pillar: 1
    weight: 3.0
  - pillar: 7
    weight: 0
  - pillar: 42
    weight: 9.9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	weights, err := LoadWeights(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, weights.WeightOf(datatypes.PillarPain))
	assert.Equal(t, 0.0, weights.WeightOf(datatypes.PillarPriceSensitivity))
	// Unknown pillars are dropped, defaults hold elsewhere.
	assert.Equal(t, 1.5, weights.WeightOf(datatypes.PillarUrgency))
}

func TestLoadWeightsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: [not a mapping"), 0o644))

	_, err := LoadWeights(path)
	assert.Error(t, err)
}
