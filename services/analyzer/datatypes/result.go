// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Classification Levels
// =============================================================================

// Level is the ordinal readiness classification of a composite score.
type Level string

const (
	LevelHot  Level = "hot"
	LevelWarm Level = "warm"
	LevelCool Level = "cool"
	LevelNoGo Level = "no_go"
)

// Classification band thresholds on the default 0..100 scale. Bands are
// applied to the clamped composite before override rules.
const (
	ThresholdHot  = 70.0
	ThresholdWarm = 50.0
	ThresholdCool = 30.0
)

// Interpretation and action strings are fixed per band. The dashboard shows
// them verbatim; they are part of the product copy, not debug text.
var levelCopy = map[Level][2]string{
	LevelHot: {
		"Prospect shows strong readiness across the rubric.",
		"Move to close: summarize their numbers back to them and ask for the commitment now.",
	},
	LevelWarm: {
		"Prospect is engaged but at least one dimension is soft.",
		"Keep building: probe the weakest pillar before attempting a close.",
	},
	LevelCool: {
		"Signals are thin or contradictory; readiness is not established.",
		"Slow down: return to discovery questions and let them talk.",
	},
	LevelNoGo: {
		"A disqualifying combination is present or overall readiness is absent.",
		"Do not push for a close; schedule a follow-up and requalify.",
	},
}

// Interpretation returns the fixed interpretation text for a level.
func (l Level) Interpretation() string { return levelCopy[l][0] }

// Action returns the fixed recommended action text for a level.
func (l Level) Action() string { return levelCopy[l][1] }

// =============================================================================
// Composite Result
// =============================================================================

// PillarSnapshot is the per-pillar view embedded in a CompositeResult.
type PillarSnapshot struct {
	Pillar    PillarID `json:"pillar"`
	Name      string   `json:"name"`
	Average   float64  `json:"average"`
	Observed  int      `json:"observed"`
	Weight    float64  `json:"weight"`
	Reverse   bool     `json:"reverse"`
	Effective float64  `json:"effective"` // average after reversal, as weighted
	Defaulted bool     `json:"defaulted"` // midpoint substituted, zero observed
}

// TriggeredRule is one incoherence rule instance that fired this cycle.
// Penalty is always non-positive.
type TriggeredRule struct {
	RuleID     string  `json:"rule_id"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Penalty    float64 `json:"penalty"`
}

// Override names a close-blocker rule that forced the level down.
type Override struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// CompositeResult is the derived readiness assessment for one cycle.
//
// It is recomputed fresh from the current indicator mapping on every cycle,
// never incrementally patched, and never persisted as a source of truth.
// Score is clamped to [0, Max] where Max is the sum of effective pillar
// weights times ScoreMax.
type CompositeResult struct {
	Score          float64          `json:"score"`
	Max            float64          `json:"max"`
	Level          Level            `json:"level"`
	Interpretation string           `json:"interpretation"`
	Action         string           `json:"action"`
	Pillars        []PillarSnapshot `json:"pillars"`
	PenaltyTotal   float64          `json:"penalty_total"`
	Incoherence    []TriggeredRule  `json:"incoherence,omitempty"`
	Overrides      []Override       `json:"overrides,omitempty"`
}

// =============================================================================
// Presentation Payload
// =============================================================================

// AnalysisState is the full per-cycle payload pushed to the presentation
// channel. Always the complete current state, never a diff, so a
// late-joining consumer renders correctly from a single message.
type AnalysisState struct {
	SessionID  string             `json:"session_id"`
	CycleSeq   uint64             `json:"cycle_seq"`
	Result     CompositeResult    `json:"result"`
	Triggers   []Trigger          `json:"triggers"`
	Objections []Objection        `json:"objections"`
	Questions  []QuestionCoverage `json:"questions"`
	Degraded   bool               `json:"degraded,omitempty"`
}

// EmptyAnalysis returns the documented degraded-but-valid payload published
// when the whole pipeline faults. Consumers never receive an absent or
// malformed payload. The level is pinned to cool regardless of the neutral
// numeric score; a degraded cycle must not read as progress.
//
// weights is the session's effective configuration at the faulted cycle; a
// nil config falls back to the defaults. Passing the session snapshot keeps
// the placeholder's Max consistent with the session's normal payloads.
func EmptyAnalysis(sessionID string, seq uint64, weights WeightConfig) AnalysisState {
	if weights == nil {
		weights = NewWeightConfig(nil)
	}
	snaps := make([]PillarSnapshot, 0, PillarCount)
	for _, p := range Pillars {
		snaps = append(snaps, PillarSnapshot{
			Pillar:    p.ID,
			Name:      p.Name,
			Average:   ScoreMidpoint,
			Weight:    weights.WeightOf(p.ID),
			Reverse:   p.Reverse,
			Effective: ScoreMidpoint,
			Defaulted: true,
		})
	}
	max := weights.MaxScore()
	return AnalysisState{
		SessionID: sessionID,
		CycleSeq:  seq,
		Result: CompositeResult{
			Score:          ScoreMidpoint / ScoreMax * max,
			Max:            max,
			Level:          LevelCool,
			Interpretation: LevelCool.Interpretation(),
			Action:         LevelCool.Action(),
			Pillars:        snaps,
		},
		Triggers:   []Trigger{},
		Objections: []Objection{},
		Questions:  []QuestionCoverage{},
		Degraded:   true,
	}
}
