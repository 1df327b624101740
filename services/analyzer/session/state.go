// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the per-conversation mutable state and its
// lifecycle: an explicit keyed store with documented create/mutate/dispose
// semantics, injected into the service rather than accessed as an ambient
// global, plus a background sweeper for abandoned sessions.
package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// =============================================================================
// Session State
// =============================================================================

// State is the only long-lived mutable entity in the analyzer core.
//
// # Description
//
// Holds the current indicator mapping (latest-wins per indicator), the
// bounded accumulated transcript window, the cycle-in-flight flag with its
// start timestamp, and the last published analysis. Created when a
// conversation begins, mutated by every accepted fragment and completed
// cycle, discarded when the conversation ends. Never shared across
// sessions.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Each method is one
// atomic compound operation; callers never hold the lock across calls.
// Cycle tasks never touch State directly — their outputs flow back in only
// through FinishCycle.
type State struct {
	ID        string
	Label     string
	CreatedAt time.Time

	mu sync.Mutex

	weights    datatypes.WeightConfig
	indicators datatypes.IndicatorSet

	window       string
	lastFragment string

	cycleInFlight  bool
	cycleStartedAt time.Time
	cycleSeq       uint64
	lastCycleStart time.Time

	lastActivity time.Time

	latest    datatypes.AnalysisState
	hasLatest bool
}

// newState is only called by the Store; sessions always live in a store.
func newState(id, label string, weights datatypes.WeightConfig, now time.Time) *State {
	return &State{
		ID:           id,
		Label:        label,
		CreatedAt:    now,
		weights:      weights,
		indicators:   datatypes.IndicatorSet{},
		lastActivity: now,
	}
}

// Append adds a committed fragment to the accumulated window, trimming the
// oldest content once the window exceeds maxBytes. A fragment identical to
// the immediately preceding one is dropped (transcription echo) and Append
// returns false.
func (s *State) Append(fragment string, now time.Time, maxBytes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fragment == s.lastFragment {
		return false
	}
	s.lastFragment = fragment
	s.lastActivity = now

	if s.window == "" {
		s.window = fragment
	} else {
		s.window += " " + fragment
	}
	if len(s.window) > maxBytes {
		cut := len(s.window) - maxBytes
		// Trim forward to a word boundary so the window never starts
		// mid-word. Newest content is always kept intact.
		if idx := strings.IndexByte(s.window[cut:], ' '); idx >= 0 {
			cut += idx + 1
		}
		s.window = s.window[cut:]
	}
	return true
}

// BeginCycleResult is the outcome of a TryBeginCycle attempt.
type BeginCycleResult struct {
	Started bool
	// Reason explains a false Started for logs and metrics:
	// "interval", "in_flight".
	Reason string
	// StuckCleared reports that a wedged in-flight flag was forcibly reset
	// before this attempt was evaluated.
	StuckCleared bool

	Seq        uint64
	Window     string
	Indicators datatypes.IndicatorSet
	Weights    datatypes.WeightConfig
}

// TryBeginCycle attempts to start an analysis cycle.
//
// At most one cycle per session runs at a time. If the in-flight flag has
// been set for longer than ceiling, it is forcibly cleared first (stuck
// recovery) so one permanently hung fan-out cannot freeze the session. If
// less than minInterval has passed since the last cycle started, no cycle
// begins; the already-appended fragment simply waits for the next one.
func (s *State) TryBeginCycle(now time.Time, minInterval, ceiling time.Duration) BeginCycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stuckCleared bool
	if s.cycleInFlight && now.Sub(s.cycleStartedAt) > ceiling {
		slog.Error("forcibly clearing stuck analysis cycle",
			"session_id", s.ID,
			"cycle_seq", s.cycleSeq,
			"in_flight_for", now.Sub(s.cycleStartedAt).String(),
		)
		s.cycleInFlight = false
		stuckCleared = true
	}

	if s.cycleInFlight {
		return BeginCycleResult{Reason: "in_flight", StuckCleared: stuckCleared}
	}
	if !s.lastCycleStart.IsZero() && now.Sub(s.lastCycleStart) < minInterval {
		return BeginCycleResult{Reason: "interval", StuckCleared: stuckCleared}
	}

	s.cycleSeq++
	s.cycleInFlight = true
	s.cycleStartedAt = now
	s.lastCycleStart = now

	return BeginCycleResult{
		Started:      true,
		StuckCleared: stuckCleared,
		Seq:          s.cycleSeq,
		Window:       s.window,
		Indicators:   s.indicators.Clone(),
		Weights:      s.weights,
	}
}

// FinishCycle settles a cycle's merged signals back into the session.
//
// A merge whose sequence is behind the latest started cycle is discarded
// entirely: it neither mutates the indicator mapping nor clears the
// in-flight flag (that flag belongs to the newer cycle). On success the
// updated indicator snapshot and weights are returned for scoring.
func (s *State) FinishCycle(seq uint64, merged datatypes.IndicatorSet) (datatypes.IndicatorSet, datatypes.WeightConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.cycleSeq {
		slog.Warn("discarding stale cycle merge",
			"session_id", s.ID, "stale_seq", seq, "current_seq", s.cycleSeq)
		return nil, nil, false
	}
	s.cycleInFlight = false
	s.indicators.Merge(merged)
	return s.indicators.Clone(), s.weights, true
}

// AbortCycle clears the in-flight flag for a cycle that failed before
// producing any merge, without touching the indicator mapping.
func (s *State) AbortCycle(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.cycleSeq {
		s.cycleInFlight = false
	}
}

// Publish stores state as the latest analysis if it is not older than what
// is already shown. Last cycle to finish wins only when its sequence is
// current; Publish is the final stale-discard gate.
func (s *State) Publish(state datatypes.AnalysisState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLatest && state.CycleSeq < s.latest.CycleSeq {
		return false
	}
	s.latest = state
	s.hasLatest = true
	return true
}

// Latest returns the most recent published analysis. ok is false before the
// first completed cycle.
func (s *State) Latest() (datatypes.AnalysisState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLatest
}

// SetWeights replaces the session's weight configuration. The new weights
// apply from the next cycle; an in-flight cycle keeps its snapshot.
func (s *State) SetWeights(w datatypes.WeightConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = w
}

// LastActivity returns when the session last accepted a fragment.
func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Window returns the current accumulated transcript window.
func (s *State) Window() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}
