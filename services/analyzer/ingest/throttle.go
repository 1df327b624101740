// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest implements the ingestion throttle: the single admission
// path every arriving transcript fragment passes through. The throttle
// decides whether a fragment starts a new analysis cycle, is buffered for
// the next one, or is dropped — and self-heals a wedged cycle after a hard
// ceiling.
package ingest

import (
	"log/slog"
	"strings"
	"time"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds the throttle tuning knobs.
//
// # Fields
//
//   - MinCycleInterval: Minimum time between cycle starts. Fragments
//     arriving sooner are buffered into the window without starting a
//     cycle. Default: 4s.
//   - StuckCycleCeiling: How long an in-flight flag may stay set before it
//     is forcibly cleared and logged as a fault. Default: 20s (5x the
//     minimum interval).
//   - MaxWindowBytes: Cap on the accumulated transcript window; oldest
//     content is trimmed, never the newest. Default: 8KB.
type Config struct {
	MinCycleInterval  time.Duration
	StuckCycleCeiling time.Duration
	MaxWindowBytes    int
}

// DefaultConfig returns the production throttle configuration.
func DefaultConfig() Config {
	return Config{
		MinCycleInterval:  4 * time.Second,
		StuckCycleCeiling: 20 * time.Second,
		MaxWindowBytes:    8 * 1024,
	}
}

// =============================================================================
// Throttle
// =============================================================================

// Throttle is the admission gate for one analyzer instance. It owns no
// session state itself; all mutation happens through the session.State
// methods on the single path below.
type Throttle struct {
	cfg   Config
	clock session.Clock
}

// NewThrottle creates a throttle. A nil clock uses the system clock; tests
// inject a fake.
func NewThrottle(cfg Config, clock session.Clock) *Throttle {
	if clock == nil {
		clock = session.SystemClock()
	}
	if cfg.MinCycleInterval <= 0 {
		cfg.MinCycleInterval = DefaultConfig().MinCycleInterval
	}
	if cfg.StuckCycleCeiling <= 0 {
		cfg.StuckCycleCeiling = 5 * cfg.MinCycleInterval
	}
	if cfg.MaxWindowBytes <= 0 {
		cfg.MaxWindowBytes = DefaultConfig().MaxWindowBytes
	}
	return &Throttle{cfg: cfg, clock: clock}
}

// Admission is the outcome of one Admit call.
type Admission struct {
	// Accepted is false when the fragment was dropped before reaching the
	// window (empty, hallucination, echo duplicate).
	Accepted bool

	// ShouldRunCycle is true when the caller must start exactly one
	// analysis cycle with the snapshot below.
	ShouldRunCycle bool

	// Reason labels drops and deferrals for logs and metrics: "empty",
	// "hallucination", "duplicate", "interval", "in_flight".
	Reason string

	// StuckCleared reports that a wedged cycle flag was forcibly reset
	// during this admission.
	StuckCleared bool

	// Snapshot for the cycle when ShouldRunCycle is set.
	Snapshot session.BeginCycleResult
}

// Admit runs the full admission path for one arriving fragment.
//
// # Description
//
// In order: reject empty/whitespace-only fragments; reject known
// speech-to-text hallucination artifacts; append to the bounded window
// (which drops an echo of the immediately preceding fragment); then attempt
// to begin a cycle, which enforces the minimum inter-cycle interval, the
// at-most-one-in-flight invariant, and stuck-cycle recovery. A fragment
// that does not start a cycle still sits in the window, so the next cycle
// sees it.
func (t *Throttle) Admit(st *session.State, fragment string) Admission {
	now := t.clock.Now()

	if strings.TrimSpace(fragment) == "" {
		return Admission{Reason: "empty"}
	}
	if IsHallucination(fragment) {
		slog.Debug("dropped hallucination artifact",
			"session_id", st.ID, "fragment", fragment)
		return Admission{Reason: "hallucination"}
	}

	if !st.Append(fragment, now, t.cfg.MaxWindowBytes) {
		return Admission{Reason: "duplicate"}
	}

	res := st.TryBeginCycle(now, t.cfg.MinCycleInterval, t.cfg.StuckCycleCeiling)
	if !res.Started {
		return Admission{
			Accepted:     true,
			Reason:       res.Reason,
			StuckCleared: res.StuckCleared,
		}
	}
	return Admission{
		Accepted:       true,
		ShouldRunCycle: true,
		StuckCleared:   res.StuckCleared,
		Snapshot:       res,
	}
}
