// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the data structures shared by the analyzer
// service: the psychometric rubric, merged cycle signals, composite results,
// and validated request bodies.
//
// The rubric is fixed reference data. 27 indicators partition into 7 pillars
// with no gaps or overlaps; indicator ids and pillar membership never change
// at runtime. Only pillar weights are configurable.
package datatypes

import "fmt"

// =============================================================================
// Score Domain
// =============================================================================

const (
	// ScoreMin is the lowest raw score a single indicator can take.
	ScoreMin = 1.0

	// ScoreMax is the highest raw score a single indicator can take.
	ScoreMax = 10.0

	// ScoreMidpoint is the neutral value substituted for a pillar with zero
	// observed indicators. A missing individual indicator is excluded from
	// its pillar average instead; the midpoint applies only when the whole
	// pillar is unobserved, so missing data alone cannot zero the composite.
	ScoreMidpoint = 5.0

	// IndicatorCount is the size of the closed indicator id range [1, 27].
	IndicatorCount = 27
)

// =============================================================================
// Pillars
// =============================================================================

// PillarID identifies one of the seven rubric pillars.
type PillarID int

const (
	PillarPain PillarID = iota + 1
	PillarUrgency
	PillarMoney
	PillarDecisiveness
	PillarTrust
	PillarEngagement
	PillarPriceSensitivity
)

// PillarCount is the number of pillars in the rubric.
const PillarCount = 7

// String returns the short machine name used in logs, metrics labels and
// wire payloads.
func (p PillarID) String() string {
	switch p {
	case PillarPain:
		return "pain"
	case PillarUrgency:
		return "urgency"
	case PillarMoney:
		return "money"
	case PillarDecisiveness:
		return "decisiveness"
	case PillarTrust:
		return "trust"
	case PillarEngagement:
		return "engagement"
	case PillarPriceSensitivity:
		return "price_sensitivity"
	default:
		return fmt.Sprintf("pillar_%d", int(p))
	}
}

// Pillar describes one weighted group of indicators.
//
// # Fields
//
//   - ID: Pillar identifier (1..7).
//   - Name: Human-readable pillar name for the dashboard.
//   - First, Last: Inclusive indicator id range owned by this pillar.
//   - DefaultWeight: Weight applied when no override is configured.
//   - Reverse: Reverse-scored flag. A reverse pillar's raw average `a` is
//     transformed to (ScoreMax + ScoreMin) - a before weighting, so a high
//     raw "bad" signal becomes a low "good" contribution.
type Pillar struct {
	ID            PillarID `json:"id"`
	Name          string   `json:"name"`
	First         int      `json:"first_indicator"`
	Last          int      `json:"last_indicator"`
	DefaultWeight float64  `json:"default_weight"`
	Reverse       bool     `json:"reverse"`
}

// Pillars is the fixed pillar table. Default weights sum to 10.0, so the
// default maximum composite is 100. The maximum is still always recomputed
// from the active weight configuration, never hard-coded.
var Pillars = [PillarCount]Pillar{
	{ID: PillarPain, Name: "Pain", First: 1, Last: 5, DefaultWeight: 2.00},
	{ID: PillarUrgency, Name: "Urgency", First: 6, Last: 9, DefaultWeight: 1.50},
	{ID: PillarMoney, Name: "Money", First: 10, Last: 13, DefaultWeight: 1.50},
	{ID: PillarDecisiveness, Name: "Decisiveness", First: 14, Last: 17, DefaultWeight: 1.50},
	{ID: PillarTrust, Name: "Trust", First: 18, Last: 21, DefaultWeight: 1.25},
	{ID: PillarEngagement, Name: "Engagement", First: 22, Last: 24, DefaultWeight: 1.25},
	{ID: PillarPriceSensitivity, Name: "Price Sensitivity", First: 25, Last: 27, DefaultWeight: 1.00, Reverse: true},
}

// PillarByID returns the pillar definition for an id, or false for an
// unknown id.
func PillarByID(id PillarID) (Pillar, bool) {
	if id < PillarPain || id > PillarPriceSensitivity {
		return Pillar{}, false
	}
	return Pillars[id-1], true
}

// =============================================================================
// Indicators
// =============================================================================

// Indicator is a single scored micro-signal extracted from speech.
type Indicator struct {
	ID     int      `json:"id"`
	Pillar PillarID `json:"pillar"`
	Label  string   `json:"label"`
}

// indicatorLabels holds the immutable human label per indicator id.
var indicatorLabels = [IndicatorCount + 1]string{
	1:  "Admits a concrete financial hardship",
	2:  "Mentions missed or late payments",
	3:  "Describes stress or sleepless nights about the situation",
	4:  "Has already tried and failed another way out",
	5:  "Names a specific consequence they fear",
	6:  "References a hard external deadline",
	7:  "Uses near-term time words (this week, days, soon)",
	8:  "Asks how fast a resolution could happen",
	9:  "Situation is actively deteriorating",
	10: "Discloses equity, savings, or income details",
	11: "Gives realistic numbers rather than wishes",
	12: "Acknowledges what a solution is worth to them",
	13: "Does not anchor on an impossible figure",
	14: "Claims sole authority to decide",
	15: "Commits to concrete next steps unprompted",
	16: "Answers decision questions without deflecting",
	17: "Past decisions described as quick and owned",
	18: "Volunteers personal context unprompted",
	19: "Accepts explanations without repeated challenge",
	20: "References the agent or company positively",
	21: "Tone is open rather than guarded",
	22: "Asks substantive questions back",
	23: "Long, engaged answers rather than monosyllables",
	24: "Stays on topic without being pulled back",
	25: "Fixates on price before understanding the offer",
	26: "Compares against unrealistic alternatives",
	27: "Signals intent to shop the offer around",
}

// IndicatorByID returns the indicator definition for an id in [1, 27],
// or false for anything outside the closed range.
func IndicatorByID(id int) (Indicator, bool) {
	p, ok := PillarOf(id)
	if !ok {
		return Indicator{}, false
	}
	return Indicator{ID: id, Pillar: p, Label: indicatorLabels[id]}, true
}

// PillarOf maps an indicator id to its owning pillar.
func PillarOf(id int) (PillarID, bool) {
	if id < 1 || id > IndicatorCount {
		return 0, false
	}
	for _, p := range Pillars {
		if id >= p.First && id <= p.Last {
			return p.ID, true
		}
	}
	return 0, false
}

// =============================================================================
// Indicator Set
// =============================================================================

// IndicatorSet is the current mapping of indicator id to raw score for a
// session. Latest-wins per indicator: each analysis cycle may overwrite an
// indicator's score. A missing key means "not yet observed" and must never
// be treated as the midpoint at the indicator level.
type IndicatorSet map[int]float64

// Clone returns an independent copy so a cycle can work on a snapshot while
// the session keeps mutating.
func (s IndicatorSet) Clone() IndicatorSet {
	out := make(IndicatorSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge overlays observed scores from other onto s. Ids outside the rubric
// range and scores outside [ScoreMin, ScoreMax] are dropped silently; the
// caller has already logged the shape violation.
func (s IndicatorSet) Merge(other IndicatorSet) {
	for id, v := range other {
		if _, ok := PillarOf(id); !ok {
			continue
		}
		if v < ScoreMin || v > ScoreMax {
			continue
		}
		s[id] = v
	}
}

// PillarAverage returns the arithmetic mean of the observed member
// indicators of pillar p and how many were observed. With zero observed
// members it returns (0, 0); midpoint substitution is the scoring engine's
// decision, not the data model's.
func (s IndicatorSet) PillarAverage(p PillarID) (avg float64, observed int) {
	pd, ok := PillarByID(p)
	if !ok {
		return 0, 0
	}
	var sum float64
	for id := pd.First; id <= pd.Last; id++ {
		if v, seen := s[id]; seen {
			sum += v
			observed++
		}
	}
	if observed == 0 {
		return 0, 0
	}
	return sum / float64(observed), observed
}

// =============================================================================
// Weight Configuration
// =============================================================================

// WeightConfig maps pillar id to weight. Pillars missing from the map use
// their documented default; unknown pillar ids are ignored by construction
// (see NewWeightConfig).
type WeightConfig map[PillarID]float64

// WeightOverride is one entry of the external weight configuration input.
type WeightOverride struct {
	Pillar PillarID `json:"pillar" yaml:"pillar"`
	Weight float64  `json:"weight" yaml:"weight" validate:"gte=0"`
}

// NewWeightConfig builds a WeightConfig from an ordered override list.
// Unknown pillar ids and negative weights are ignored. A nil or empty list
// yields the default configuration.
func NewWeightConfig(overrides []WeightOverride) WeightConfig {
	cfg := make(WeightConfig, PillarCount)
	for _, p := range Pillars {
		cfg[p.ID] = p.DefaultWeight
	}
	for _, o := range overrides {
		if _, ok := PillarByID(o.Pillar); !ok {
			continue
		}
		if o.Weight < 0 {
			continue
		}
		cfg[o.Pillar] = o.Weight
	}
	return cfg
}

// WeightOf returns the effective weight of pillar p, falling back to the
// pillar's documented default when the configuration is partial.
func (w WeightConfig) WeightOf(p PillarID) float64 {
	if v, ok := w[p]; ok {
		return v
	}
	pd, ok := PillarByID(p)
	if !ok {
		return 0
	}
	return pd.DefaultWeight
}

// MaxScore returns the maximum possible composite under this configuration:
// the sum of every pillar's effective weight times ScoreMax. Always computed
// fresh so score/max stays meaningful under custom weighting.
func (w WeightConfig) MaxScore() float64 {
	var max float64
	for _, p := range Pillars {
		max += w.WeightOf(p.ID) * ScoreMax
	}
	return max
}
