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

// Trigger is a detected rhetorical "hot" moment in the conversation.
//
// Evidence is a short verbatim quote from the transcript window. Evidence
// that does not fuzzy-match the source window is still surfaced with
// Unverified set — false negatives are worse than low-confidence positives
// in this domain, so nothing is silently discarded.
type Trigger struct {
	Name       string  `json:"name"`
	Evidence   string  `json:"evidence"`
	Score      float64 `json:"score"`
	Unverified bool    `json:"unverified,omitempty"`
}

// Objection is a prospect objection extracted by the detection task, later
// enriched by the dependent diagnosis/reframe/rebuttal tasks. The enrichment
// fields stay empty when their task times out or fails.
type Objection struct {
	Text       string  `json:"text"`
	Evidence   string  `json:"evidence"`
	Score      float64 `json:"score"`
	Fear       string  `json:"fear,omitempty"`
	Reframe    string  `json:"reframe,omitempty"`
	Rebuttal   string  `json:"rebuttal,omitempty"`
	Unverified bool    `json:"unverified,omitempty"`
}

// QuestionCoverage reports which of the playbook's discovery questions have
// been answered so far in the conversation.
type QuestionCoverage struct {
	Question string `json:"question"`
	Covered  bool   `json:"covered"`
	Evidence string `json:"evidence,omitempty"`
}

// CoherenceHint is an externally supplied vote for an incoherence rule that
// cannot be derived from numeric aggregates alone. Hints below the engine's
// confidence threshold are ignored, and a local numeric evaluation of the
// same rule always takes precedence to avoid double-penalizing.
type CoherenceHint struct {
	RuleID     string  `json:"rule_id"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// MergedSignals is the settled output of one fan-out cycle: the union of
// every scoring task's contribution, with documented defaults substituted
// for tasks that failed or timed out. Partial results are never published
// mid-cycle; this struct only exists after every task has settled.
type MergedSignals struct {
	// Indicators is the union of the per-pillar scoring task outputs.
	// Tasks are disjoint by pillar, so keys cannot conflict.
	Indicators IndicatorSet `json:"indicators"`

	Triggers   []Trigger          `json:"triggers"`
	Objections []Objection        `json:"objections"`
	Questions  []QuestionCoverage `json:"questions"`
	Hints      []CoherenceHint    `json:"hints"`

	// FailedTasks names the tasks whose contribution was replaced by a
	// default, for logging and metrics. Never surfaced as a cycle error.
	FailedTasks []string `json:"failed_tasks,omitempty"`
}

// EmptySignals returns the documented all-defaults merge used when the whole
// fan-out step fails. Downstream consumers always receive a valid payload.
func EmptySignals() MergedSignals {
	return MergedSignals{Indicators: IndicatorSet{}}
}
