// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fanout

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// Model output is untrusted. Every parser here strips markdown fences,
// tolerates prose around the JSON payload, and drops malformed elements
// individually instead of failing the whole task.

// extractJSON returns the first plausible JSON value embedded in raw:
// fenced blocks are unwrapped, then the text between the first opening
// bracket and its matching last close is taken.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON value in model output")
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON value in model output")
	}
	return s[start : end+1], nil
}

// asFloat coerces the loose value shapes models emit for numbers.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// parseIndicatorScores reads a {"id": score} object for one pillar.
// Ids outside the pillar's range are dropped so merged task outputs
// stay disjoint; out-of-range scores are dropped rather than clamped.
func parseIndicatorScores(raw string, p datatypes.Pillar) (datatypes.IndicatorSet, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var loose map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("failed to parse indicator scores: %w", err)
	}
	out := make(datatypes.IndicatorSet, p.Last-p.First+1)
	for key, v := range loose {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id < p.First || id > p.Last {
			slog.Debug("Dropping indicator outside the task's pillar", "key", key, "pillar", p.Name)
			continue
		}
		score, ok := asFloat(v)
		if !ok || score < datatypes.ScoreMin || score > datatypes.ScoreMax {
			slog.Debug("Dropping out-of-range indicator score", "id", id, "value", v)
			continue
		}
		out[id] = score
	}
	return out, nil
}

type looseTrigger struct {
	Name     string      `json:"name"`
	Evidence string      `json:"evidence"`
	Score    interface{} `json:"score"`
}

func parseTriggers(raw string) ([]datatypes.Trigger, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var loose []looseTrigger
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("failed to parse triggers: %w", err)
	}
	out := make([]datatypes.Trigger, 0, len(loose))
	for _, t := range loose {
		score, ok := asFloat(t.Score)
		if t.Name == "" || t.Evidence == "" || !ok {
			slog.Debug("Dropping malformed trigger", "name", t.Name)
			continue
		}
		if score < datatypes.ScoreMin {
			score = datatypes.ScoreMin
		}
		if score > datatypes.ScoreMax {
			score = datatypes.ScoreMax
		}
		out = append(out, datatypes.Trigger{Name: t.Name, Evidence: t.Evidence, Score: score})
	}
	return out, nil
}

type looseObjection struct {
	Text     string      `json:"text"`
	Evidence string      `json:"evidence"`
	Score    interface{} `json:"score"`
}

func parseObjections(raw string) ([]datatypes.Objection, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var loose []looseObjection
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("failed to parse objections: %w", err)
	}
	out := make([]datatypes.Objection, 0, len(loose))
	for _, o := range loose {
		score, ok := asFloat(o.Score)
		if o.Text == "" || o.Evidence == "" || !ok {
			slog.Debug("Dropping malformed objection", "text", o.Text)
			continue
		}
		if score < datatypes.ScoreMin {
			score = datatypes.ScoreMin
		}
		if score > datatypes.ScoreMax {
			score = datatypes.ScoreMax
		}
		out = append(out, datatypes.Objection{Text: o.Text, Evidence: o.Evidence, Score: score})
	}
	return out, nil
}

func parseQuestions(raw string) ([]datatypes.QuestionCoverage, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var loose []datatypes.QuestionCoverage
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("failed to parse question coverage: %w", err)
	}
	out := make([]datatypes.QuestionCoverage, 0, len(loose))
	for _, q := range loose {
		if q.Question == "" {
			continue
		}
		if !q.Covered {
			q.Evidence = ""
		}
		out = append(out, q)
	}
	return out, nil
}

type looseHint struct {
	RuleID     string      `json:"rule_id"`
	Evidence   string      `json:"evidence"`
	Confidence interface{} `json:"confidence"`
}

func parseHints(raw string) ([]datatypes.CoherenceHint, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var loose []looseHint
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("failed to parse coherence hints: %w", err)
	}
	out := make([]datatypes.CoherenceHint, 0, len(loose))
	for _, h := range loose {
		conf, ok := asFloat(h.Confidence)
		if h.RuleID == "" || !ok || conf < 0 || conf > 1 {
			slog.Debug("Dropping malformed coherence hint", "rule_id", h.RuleID)
			continue
		}
		out = append(out, datatypes.CoherenceHint{RuleID: h.RuleID, Evidence: h.Evidence, Confidence: conf})
	}
	return out, nil
}

// parseStringList reads the enrichment-task output: one string per
// objection, in order.
func parseStringList(raw string) ([]string, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("failed to parse string list: %w", err)
	}
	return out, nil
}
