// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the deterministic scoring engine and the
// incoherence rule engine for the analyzer.
//
// Both are pure, synchronous and total: no network calls, no clock, no
// randomness, and no errors — missing data degrades gracefully. For a fixed
// input the output is bit-identical across calls, which the dashboard relies
// on to avoid flicker between cycles that carry no new speech.
package engine

import (
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// =============================================================================
// Deterministic Scoring
// =============================================================================

// Score aggregates the current indicator mapping into a CompositeResult
// under the given weight configuration and already-detected incoherence
// rules.
//
// # Description
//
// The algorithm, in order:
//
//  1. Average each pillar's observed member indicators. A pillar with zero
//     observed indicators contributes the rubric midpoint instead of being
//     excluded, so one unscored pillar cannot zero out the composite.
//  2. Transform reverse-scored pillar averages a -> (ScoreMax+ScoreMin)-a
//     before weighting.
//  3. Composite = sum(effective average x weight) + sum(rule penalties),
//     clamped to [0, sum(weight x ScoreMax)]. Penalties are non-positive.
//  4. Classify into the fixed bands and attach the band's interpretation
//     and action copy.
//  5. Evaluate close-blocker overrides last; any match forces the level to
//     the worst band unconditionally.
//
// # Inputs
//
//   - indicators: Current indicator mapping (latest-wins, may be partial).
//   - weights: Effective weight configuration. May be nil or partial; every
//     missing pillar uses its documented default weight.
//   - incoherence: Rules already detected for this cycle by Detect.
//
// # Outputs
//
//   - datatypes.CompositeResult: Complete derived assessment. Never an error.
func Score(indicators datatypes.IndicatorSet, weights datatypes.WeightConfig,
	incoherence []datatypes.TriggeredRule) datatypes.CompositeResult {

	if weights == nil {
		weights = datatypes.NewWeightConfig(nil)
	}

	snaps := make([]datatypes.PillarSnapshot, 0, datatypes.PillarCount)
	raw := make(map[datatypes.PillarID]float64, datatypes.PillarCount)

	var weighted, max float64
	for _, p := range datatypes.Pillars {
		avg, observed := indicators.PillarAverage(p.ID)
		defaulted := observed == 0
		if defaulted {
			avg = datatypes.ScoreMidpoint
		}
		raw[p.ID] = avg

		effective := avg
		if p.Reverse {
			effective = (datatypes.ScoreMax + datatypes.ScoreMin) - avg
		}

		w := weights.WeightOf(p.ID)
		weighted += effective * w
		max += w * datatypes.ScoreMax

		snaps = append(snaps, datatypes.PillarSnapshot{
			Pillar:    p.ID,
			Name:      p.Name,
			Average:   avg,
			Observed:  observed,
			Weight:    w,
			Reverse:   p.Reverse,
			Effective: effective,
			Defaulted: defaulted,
		})
	}

	var penalty float64
	for _, r := range incoherence {
		penalty += r.Penalty
	}

	score := weighted + penalty
	if score < 0 {
		score = 0
	}
	if score > max {
		score = max
	}

	level := classify(score, max)

	// Close blockers run last and win unconditionally, even against a
	// numerically hot composite.
	overrides := evaluateOverrides(raw)
	if len(overrides) > 0 {
		level = datatypes.LevelNoGo
	}

	return datatypes.CompositeResult{
		Score:          score,
		Max:            max,
		Level:          level,
		Interpretation: level.Interpretation(),
		Action:         level.Action(),
		Pillars:        snaps,
		PenaltyTotal:   penalty,
		Incoherence:    incoherence,
		Overrides:      overrides,
	}
}

// classify maps a clamped composite onto the fixed ordinal bands. Thresholds
// are defined on the default 0..100 scale and rescaled to the configured max
// so custom weights keep the bands proportional.
func classify(score, max float64) datatypes.Level {
	if max <= 0 {
		return datatypes.LevelNoGo
	}
	normalized := score / max * 100
	switch {
	case normalized >= datatypes.ThresholdHot:
		return datatypes.LevelHot
	case normalized >= datatypes.ThresholdWarm:
		return datatypes.LevelWarm
	case normalized >= datatypes.ThresholdCool:
		return datatypes.LevelCool
	default:
		return datatypes.LevelNoGo
	}
}

// =============================================================================
// Close-Blocker Overrides
// =============================================================================

// overrideRule is one close blocker: a named predicate over raw pillar
// averages (after midpoint substitution, before reversal).
type overrideRule struct {
	id     string
	reason string
	match  func(raw map[datatypes.PillarID]float64) bool
}

// overrideRules is the fixed close-blocker table. Adding a blocker means
// adding a row here; nothing in the orchestration changes.
var overrideRules = []overrideRule{
	{
		id:     "no_pain_no_urgency",
		reason: "Pain and urgency are both low; there is nothing to close against.",
		match: func(raw map[datatypes.PillarID]float64) bool {
			return raw[datatypes.PillarPain] < 4 && raw[datatypes.PillarUrgency] < 4
		},
	},
	{
		id:     "price_fixated_no_money",
		reason: "High price fixation combined with no financial capacity.",
		match: func(raw map[datatypes.PillarID]float64) bool {
			return raw[datatypes.PillarPriceSensitivity] >= 8 && raw[datatypes.PillarMoney] <= 3
		},
	},
}

func evaluateOverrides(raw map[datatypes.PillarID]float64) []datatypes.Override {
	var out []datatypes.Override
	for _, r := range overrideRules {
		if r.match(raw) {
			out = append(out, datatypes.Override{RuleID: r.id, Reason: r.reason})
		}
	}
	return out
}
