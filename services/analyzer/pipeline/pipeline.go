// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline ties the analyzer stages together: admission through the
// ingestion throttle, parallel fan-out, incoherence detection, deterministic
// scoring, and publication to the live channel and the history sink.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/engine"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/history"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/ingest"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/observability"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

var tracer = otel.Tracer("copilot.analyzer.pipeline")

// CycleRunner is the fan-out contract the pipeline depends on. Satisfied by
// *fanout.Orchestrator; tests substitute a deterministic fake.
type CycleRunner interface {
	RunCycle(ctx context.Context, window string) datatypes.MergedSignals
}

// Notifier receives every published analysis state, in publish order per
// session. Satisfied by the websocket hub.
type Notifier interface {
	Notify(state datatypes.AnalysisState)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(state datatypes.AnalysisState)

func (f NotifierFunc) Notify(state datatypes.AnalysisState) { f(state) }

// Pipeline runs the full per-fragment path for one analyzer instance.
//
// # Thread Safety
//
// Safe for concurrent use across sessions and across fragments of one
// session; per-session ordering and the at-most-one-cycle invariant are
// enforced by session.State, not here.
type Pipeline struct {
	throttle *ingest.Throttle
	runner   CycleRunner
	notifier Notifier
	sink     *history.Sink
	metrics  *observability.AnalysisMetrics
	clock    session.Clock
}

// New wires a pipeline. sink may be nil (history disabled), notifier may be
// nil (no live push), metrics may be nil (uninstrumented, used by tests).
func New(throttle *ingest.Throttle, runner CycleRunner, notifier Notifier,
	sink *history.Sink, metrics *observability.AnalysisMetrics, clock session.Clock) *Pipeline {

	if clock == nil {
		clock = session.SystemClock()
	}
	return &Pipeline{
		throttle: throttle,
		runner:   runner,
		notifier: notifier,
		sink:     sink,
		metrics:  metrics,
		clock:    clock,
	}
}

// HandleFragment admits one transcript fragment and, when the throttle
// grants a cycle, runs it asynchronously. The returned admission tells the
// transport layer what happened to the fragment itself; cycle results reach
// consumers through the notifier, never through this call.
func (p *Pipeline) HandleFragment(ctx context.Context, st *session.State, fragment string) ingest.Admission {
	adm := p.throttle.Admit(st, fragment)
	if !adm.Accepted && p.metrics != nil {
		p.metrics.RecordRejectedFragment(adm.Reason)
	}
	if !adm.ShouldRunCycle {
		return adm
	}

	// The cycle outlives the HTTP request that carried the fragment.
	cycleCtx := context.WithoutCancel(ctx)
	go p.runCycle(cycleCtx, st, adm.Snapshot)
	return adm
}

// runCycle executes one granted analysis cycle end to end.
func (p *Pipeline) runCycle(ctx context.Context, st *session.State, snap session.BeginCycleResult) {
	ctx, span := tracer.Start(ctx, "PipelineCycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", st.ID),
		attribute.Int64("cycle_seq", int64(snap.Seq)),
	)

	start := p.clock.Now()
	merged := p.runner.RunCycle(ctx, snap.Window)

	if p.metrics != nil {
		for _, task := range merged.FailedTasks {
			p.metrics.RecordTaskFailure(task)
		}
	}

	indicators, weights, ok := st.FinishCycle(snap.Seq, merged.Indicators)
	if !ok {
		p.recordCycle(observability.OutcomeStale, start)
		return
	}

	var state datatypes.AnalysisState
	if totalFault(merged) {
		slog.Error("every scoring task failed, publishing the degraded placeholder",
			"session_id", st.ID, "cycle_seq", snap.Seq)
		state = datatypes.EmptyAnalysis(st.ID, snap.Seq, weights)
	} else {
		_, rules := engine.Detect(indicators, snap.Window, merged.Hints)
		result := engine.Score(indicators, weights, rules)
		state = datatypes.AnalysisState{
			SessionID:  st.ID,
			CycleSeq:   snap.Seq,
			Result:     result,
			Triggers:   merged.Triggers,
			Objections: merged.Objections,
			Questions:  merged.Questions,
			Degraded:   len(merged.FailedTasks) > 0,
		}
	}

	if !st.Publish(state) {
		p.recordCycle(observability.OutcomeStale, start)
		return
	}
	if p.notifier != nil {
		p.notifier.Notify(state)
	}
	if err := p.sink.Record(ctx, state); err != nil {
		// History is best-effort; the live path already succeeded.
		slog.Warn("failed to record score history", "session_id", st.ID, "error", err)
	}

	outcome := observability.OutcomeOK
	if state.Degraded {
		outcome = observability.OutcomeDegraded
	}
	p.recordCycle(outcome, start)
}

func (p *Pipeline) recordCycle(outcome observability.Outcome, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordCycle(outcome, p.clock.Now().Sub(start).Seconds())
}

// totalFault reports that no scoring task produced anything usable: every
// pillar task failed and no auxiliary output arrived either.
func totalFault(merged datatypes.MergedSignals) bool {
	if len(merged.Indicators) > 0 {
		return false
	}
	failedPillars := 0
	for _, task := range merged.FailedTasks {
		if strings.HasPrefix(task, "pillar_") {
			failedPillars++
		}
	}
	if failedPillars < datatypes.PillarCount {
		return false
	}
	return len(merged.Triggers) == 0 && len(merged.Objections) == 0 &&
		len(merged.Questions) == 0 && len(merged.Hints) == 0
}
