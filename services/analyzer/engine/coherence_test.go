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

func ruleIDs(rules []datatypes.TriggeredRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.RuleID)
	}
	return out
}

func TestDetectCoherentInputFiresNothing(t *testing.T) {
	penalty, rules := Detect(datatypes.IndicatorSet{}, "", nil)
	assert.Zero(t, penalty)
	assert.Empty(t, rules)
}

func TestDetectDesireVsDecisiveness(t *testing.T) {
	// Strong pain but an inability to decide.
	in := datatypes.IndicatorSet{1: 8, 14: 3}
	penalty, rules := Detect(in, "", nil)

	require.Len(t, rules, 1)
	assert.Equal(t, RuleDesireVsDecisiveness, rules[0].RuleID)
	assert.Equal(t, -8.0, rules[0].Penalty)
	assert.Equal(t, 1.0, rules[0].Confidence)
	assert.NotEmpty(t, rules[0].Evidence)
	assert.Equal(t, -8.0, penalty)
}

func TestDetectUrgencyWithoutPain(t *testing.T) {
	in := datatypes.IndicatorSet{6: 9, 1: 3}
	_, rules := Detect(in, "", nil)
	assert.Contains(t, ruleIDs(rules), RuleUrgencyWithoutPain)
}

func TestDetectEngagedButBroke(t *testing.T) {
	in := datatypes.IndicatorSet{22: 8, 10: 2}
	_, rules := Detect(in, "", nil)
	assert.Contains(t, ruleIDs(rules), RuleEngagedButBroke)
}

func TestDetectMultipleRulesSumPenalties(t *testing.T) {
	// Urgent and engaged, but no pain and no money.
	in := datatypes.IndicatorSet{6: 9, 1: 3, 22: 8, 10: 2}
	penalty, rules := Detect(in, "", nil)

	assert.ElementsMatch(t,
		[]string{RuleUrgencyWithoutPain, RuleEngagedButBroke},
		ruleIDs(rules))
	assert.Equal(t, -11.0, penalty)
}

// =============================================================================
// Authority Retraction
// =============================================================================

func TestDetectAuthorityRetractionLocal(t *testing.T) {
	in := datatypes.IndicatorSet{14: 8, 16: 3}
	window := "It's my house, I decide. But let me talk to my brother, I mean ask my wife first."

	penalty, rules := Detect(in, window, nil)

	require.Len(t, rules, 1)
	assert.Equal(t, RuleAuthorityRetraction, rules[0].RuleID)
	assert.Equal(t, -7.0, rules[0].Penalty)
	assert.Equal(t, 0.7, rules[0].Confidence)
	assert.Equal(t, -7.0, penalty)
}

func TestDetectAuthorityRetractionRequiresCue(t *testing.T) {
	in := datatypes.IndicatorSet{14: 8, 16: 3}
	_, rules := Detect(in, "I decide and that is final.", nil)
	assert.Empty(t, rules)
}

func TestDetectAuthorityRetractionRequiresBothIndicators(t *testing.T) {
	// The deflection indicator was never scored; the conservative local
	// check refuses to fire on a cue alone.
	in := datatypes.IndicatorSet{14: 8}
	_, rules := Detect(in, "I should check with my lawyer.", nil)
	assert.Empty(t, rules)
}

func TestDetectLocalEvaluationBeatsHint(t *testing.T) {
	in := datatypes.IndicatorSet{14: 8, 16: 3}
	window := "I have to run it by my partner."
	hints := []datatypes.CoherenceHint{
		{RuleID: RuleAuthorityRetraction, Evidence: "model-supplied", Confidence: 0.9},
	}

	penalty, rules := Detect(in, window, hints)

	// Fires exactly once, with the local evidence, never double-penalized.
	require.Len(t, rules, 1)
	assert.Equal(t, 0.7, rules[0].Confidence)
	assert.NotEqual(t, "model-supplied", rules[0].Evidence)
	assert.Equal(t, -7.0, penalty)
}

func TestDetectHintFiresWhenLocalCannot(t *testing.T) {
	hints := []datatypes.CoherenceHint{
		{RuleID: RuleAuthorityRetraction, Evidence: "said yes then deferred", Confidence: 0.8},
	}
	penalty, rules := Detect(datatypes.IndicatorSet{}, "", hints)

	require.Len(t, rules, 1)
	assert.Equal(t, RuleAuthorityRetraction, rules[0].RuleID)
	assert.Equal(t, 0.8, rules[0].Confidence)
	assert.Equal(t, "said yes then deferred", rules[0].Evidence)
	assert.Equal(t, -7.0, penalty)
}

func TestDetectHintBelowThresholdIgnored(t *testing.T) {
	hints := []datatypes.CoherenceHint{
		{RuleID: RuleAuthorityRetraction, Evidence: "weak guess", Confidence: 0.5},
	}
	_, rules := Detect(datatypes.IndicatorSet{}, "", hints)
	assert.Empty(t, rules)
}

func TestDetectHintForNumericRuleIgnored(t *testing.T) {
	// Numeric rules are authoritative; a hint cannot fire one the
	// aggregates do not support.
	hints := []datatypes.CoherenceHint{
		{RuleID: RuleEngagedButBroke, Evidence: "sounded broke", Confidence: 0.95},
	}
	_, rules := Detect(datatypes.IndicatorSet{}, "", hints)
	assert.Empty(t, rules)
}
