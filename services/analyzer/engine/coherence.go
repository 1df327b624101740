// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the incoherence rule engine: detection of internal
// contradictions between pillar aggregates, expressed as a uniform rule
// table so adding or removing a rule never touches orchestration code.

package engine

import (
	"fmt"
	"strings"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// =============================================================================
// Rule Catalog
// =============================================================================

// Rule ids are part of the wire payload; renaming one is a breaking change
// for dashboard consumers.
const (
	RuleDesireVsDecisiveness = "desire_vs_decisiveness"
	RuleUrgencyWithoutPain   = "urgency_without_pain"
	RuleEngagedButBroke      = "engaged_but_broke"
	RuleAuthorityRetraction  = "authority_retraction"
)

// HintConfidenceThreshold is the minimum confidence for an externally
// supplied hint to fire a rule that local evaluation could not.
const HintConfidenceThreshold = 0.6

// numericRule is a contradiction between two pillar aggregates: it fires
// when pillar High averages at or above HighMin while pillar Low averages
// at or below LowMax. Penalty is always non-positive.
type numericRule struct {
	id      string
	high    datatypes.PillarID
	highMin float64
	low     datatypes.PillarID
	lowMax  float64
	penalty float64
}

// numericRules is the fixed catalog of aggregate-only contradictions.
var numericRules = []numericRule{
	{RuleDesireVsDecisiveness, datatypes.PillarPain, 7, datatypes.PillarDecisiveness, 4, -8},
	{RuleUrgencyWithoutPain, datatypes.PillarUrgency, 7, datatypes.PillarPain, 4, -6},
	{RuleEngagedButBroke, datatypes.PillarEngagement, 7, datatypes.PillarMoney, 3, -5},
}

// authorityRetractionPenalty is the fixed penalty for the one rule that
// cannot be derived from numeric aggregates alone (a claim-then-retraction
// pattern in free text, "I decide" followed by "I need to ask someone").
const authorityRetractionPenalty = -7.0

// deferralCues are the lexical markers used by the conservative local
// fallback for the authority-retraction rule.
var deferralCues = []string{
	"ask my",
	"talk to my",
	"check with",
	"run it by",
	"my wife",
	"my husband",
	"my partner",
	"my lawyer",
}

// =============================================================================
// Detection
// =============================================================================

// Detect evaluates the incoherence catalog against the current indicator
// mapping, the transcript window, and any externally supplied hints.
//
// # Description
//
// Numeric rules are evaluated uniformly from the table. The
// authority-retraction rule is evaluated locally first (two decisiveness
// indicators plus a lexical cue search over the window); local evaluation
// takes precedence over an external hint for the same rule, and every rule
// fires at most once per cycle, so a rule is never double-penalized.
// Hints below HintConfidenceThreshold are ignored. Hints for rule ids the
// catalog already evaluated numerically are also ignored.
//
// # Inputs
//
//   - indicators: Current indicator mapping.
//   - window: Accumulated transcript window, read-only.
//   - hints: External hint list, possibly empty. Untrusted.
//
// # Outputs
//
//   - penaltyTotal: Sum of fired rule penalties (<= 0). Feeds Score.
//   - rules: The fired rule instances with evidence and confidence.
func Detect(indicators datatypes.IndicatorSet, window string,
	hints []datatypes.CoherenceHint) (penaltyTotal float64, rules []datatypes.TriggeredRule) {

	fired := make(map[string]bool, len(numericRules)+1)

	avg := func(p datatypes.PillarID) float64 {
		a, observed := indicators.PillarAverage(p)
		if observed == 0 {
			return datatypes.ScoreMidpoint
		}
		return a
	}

	for _, r := range numericRules {
		hi, lo := avg(r.high), avg(r.low)
		if hi >= r.highMin && lo <= r.lowMax {
			fired[r.id] = true
			rules = append(rules, datatypes.TriggeredRule{
				RuleID: r.id,
				Evidence: fmt.Sprintf("%s averages %.1f while %s averages %.1f",
					r.high, hi, r.low, lo),
				Confidence: 1.0,
				Penalty:    r.penalty,
			})
		}
	}

	if tr, ok := detectAuthorityRetraction(indicators, window); ok {
		fired[tr.RuleID] = true
		rules = append(rules, tr)
	}

	// External hints fill in only what local evaluation did not fire.
	for _, h := range hints {
		if h.Confidence < HintConfidenceThreshold {
			continue
		}
		if h.RuleID != RuleAuthorityRetraction || fired[h.RuleID] {
			continue
		}
		fired[h.RuleID] = true
		rules = append(rules, datatypes.TriggeredRule{
			RuleID:     h.RuleID,
			Evidence:   h.Evidence,
			Confidence: h.Confidence,
			Penalty:    authorityRetractionPenalty,
		})
	}

	for _, r := range rules {
		penaltyTotal += r.Penalty
	}
	return penaltyTotal, rules
}

// detectAuthorityRetraction is the conservative local fallback: a high
// sole-authority claim, a low deflection score, and at least one deferral
// cue in the transcript window. All three are required; the heuristic
// prefers missing the pattern over inventing it.
func detectAuthorityRetraction(indicators datatypes.IndicatorSet, window string) (datatypes.TriggeredRule, bool) {
	claim, claimSeen := indicators[14]    // claims sole authority to decide
	deflect, deflectSeen := indicators[16] // answers decision questions without deflecting
	if !claimSeen || !deflectSeen {
		return datatypes.TriggeredRule{}, false
	}
	if claim < 7 || deflect > 4 {
		return datatypes.TriggeredRule{}, false
	}

	lower := strings.ToLower(window)
	for _, cue := range deferralCues {
		if strings.Contains(lower, cue) {
			return datatypes.TriggeredRule{
				RuleID:     RuleAuthorityRetraction,
				Evidence:   fmt.Sprintf("claims authority (%.1f) but defers decisions (%.1f, cue %q)", claim, deflect, cue),
				Confidence: 0.7,
				Penalty:    authorityRetractionPenalty,
			}, true
		}
	}
	return datatypes.TriggeredRule{}, false
}
