// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// allHigh scores one indicator per forward pillar at 9 and price
// sensitivity at 2, a textbook ready-to-close prospect.
func allHigh() datatypes.IndicatorSet {
	return datatypes.IndicatorSet{
		1:  9, // pain
		6:  9, // urgency
		10: 9, // money
		14: 9, // decisiveness
		18: 9, // trust
		22: 9, // engagement
		25: 2, // price sensitivity (reverse)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := allHigh()
	first := Score(in, nil, nil)
	second := Score(in, nil, nil)
	assert.Equal(t, first, second)
}

func TestScoreEmptyInputDefaultsToMidpoint(t *testing.T) {
	result := Score(datatypes.IndicatorSet{}, nil, nil)

	require.Len(t, result.Pillars, datatypes.PillarCount)
	for _, p := range result.Pillars {
		assert.True(t, p.Defaulted, p.Name)
		assert.Equal(t, datatypes.ScoreMidpoint, p.Average, p.Name)
	}

	// Six forward pillars contribute the midpoint; the reverse pillar's
	// midpoint transforms to 6.0 under a -> 11-a.
	assert.InDelta(t, 51.0, result.Score, 1e-9)
	assert.Equal(t, 100.0, result.Max)
	assert.Equal(t, datatypes.LevelWarm, result.Level)
}

func TestScoreReversePillarTransform(t *testing.T) {
	// The weighted contribution of the reverse pillar must be (11-a)*w
	// across the whole raw range, not just near the midpoint.
	tests := []struct {
		raw  datatypes.IndicatorSet
		avg  float64
		want float64
	}{
		{datatypes.IndicatorSet{25: 1}, 1.0, 10.0},
		{datatypes.IndicatorSet{25: 5, 26: 6}, 5.5, 5.5},
		{datatypes.IndicatorSet{25: 9}, 9.0, 2.0},
		{datatypes.IndicatorSet{25: 10}, 10.0, 1.0},
	}
	for _, tt := range tests {
		result := Score(tt.raw, nil, nil)

		var ps datatypes.PillarSnapshot
		for _, p := range result.Pillars {
			if p.Pillar == datatypes.PillarPriceSensitivity {
				ps = p
			}
		}
		require.True(t, ps.Reverse)
		assert.Equal(t, tt.avg, ps.Average)
		assert.Equal(t, tt.want, ps.Effective)
	}
}

func TestScoreHighReadinessIsHot(t *testing.T) {
	result := Score(allHigh(), nil, nil)

	// Every effective average is 9.0, so the composite sits at 90% of max.
	assert.InDelta(t, 90.0, result.Score, 1e-9)
	assert.Equal(t, datatypes.LevelHot, result.Level)
	assert.Empty(t, result.Overrides)
	assert.NotEmpty(t, result.Interpretation)
	assert.NotEmpty(t, result.Action)
}

func TestScorePenaltiesReduceAndClamp(t *testing.T) {
	in := allHigh()
	penalized := Score(in, nil, []datatypes.TriggeredRule{
		{RuleID: "urgency_without_pain", Penalty: -6},
	})
	clean := Score(in, nil, nil)

	assert.InDelta(t, clean.Score-6, penalized.Score, 1e-9)
	assert.Equal(t, -6.0, penalized.PenaltyTotal)

	// A pathological penalty can never drive the composite negative.
	floored := Score(datatypes.IndicatorSet{}, nil, []datatypes.TriggeredRule{
		{RuleID: "urgency_without_pain", Penalty: -500},
	})
	assert.Equal(t, 0.0, floored.Score)
	assert.Equal(t, datatypes.LevelNoGo, floored.Level)
}

func TestScoreOverrideForcesNoGo(t *testing.T) {
	// Numerically warm-to-hot, but price-fixated with no money.
	in := allHigh()
	in[10] = 2 // money
	in[25] = 9 // price sensitivity

	result := Score(in, nil, nil)

	require.Len(t, result.Overrides, 1)
	assert.Equal(t, "price_fixated_no_money", result.Overrides[0].RuleID)
	assert.Equal(t, datatypes.LevelNoGo, result.Level)
}

func TestScoreNoPainNoUrgencyOverride(t *testing.T) {
	in := allHigh()
	in[1] = 2 // pain
	in[6] = 3 // urgency

	result := Score(in, nil, nil)

	require.Len(t, result.Overrides, 1)
	assert.Equal(t, "no_pain_no_urgency", result.Overrides[0].RuleID)
	assert.Equal(t, datatypes.LevelNoGo, result.Level)
}

func TestScoreCustomWeightsRescaleBands(t *testing.T) {
	// Zeroing a pillar removes it from both the composite and the max, so
	// the proportional band classification is unchanged for uniform input.
	weights := datatypes.NewWeightConfig([]datatypes.WeightOverride{
		{Pillar: datatypes.PillarTrust, Weight: 0},
	})
	result := Score(allHigh(), weights, nil)

	assert.Equal(t, weights.MaxScore(), result.Max)
	assert.InDelta(t, 87.5, result.Max, 1e-9)
	assert.Equal(t, datatypes.LevelHot, result.Level)
}

func TestScorePartialPillarAveragesObserved(t *testing.T) {
	// Two of four money indicators observed: the average uses only those.
	result := Score(datatypes.IndicatorSet{10: 8, 11: 4}, nil, nil)

	for _, p := range result.Pillars {
		if p.Pillar == datatypes.PillarMoney {
			assert.Equal(t, 2, p.Observed)
			assert.Equal(t, 6.0, p.Average)
			assert.False(t, p.Defaulted)
		}
	}
}
