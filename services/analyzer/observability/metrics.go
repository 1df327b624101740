// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the analyzer.
//
// # Description
//
// This package implements Prometheus metrics for monitoring live call
// analysis. Metrics include:
//   - Cycle counters (by outcome) and cycle duration histograms
//   - Scoring task failure counters (by task)
//   - Fragment rejection counters (by reason)
//   - Active session and live websocket gauges
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "copilot"

// Subsystem for analysis metrics
const analysisSubsystem = "analysis"

// AnalysisMetrics holds all Prometheus metrics for live call analysis.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring cycle throughput
// and degradation. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - CyclesTotal: Counter of analysis cycles by outcome
//   - CycleDurationSeconds: Histogram of full cycle duration
//   - TaskFailuresTotal: Counter of degraded scoring tasks by task name
//   - FragmentsRejectedTotal: Counter of rejected transcript fragments by reason
//   - StaleCyclesTotal: Counter of cycle results discarded as stale
//   - ActiveSessions: Gauge of live sessions in the store
//   - LiveSubscribers: Gauge of connected websocket clients
//
// # Thread Safety
//
// All operations are thread-safe.
type AnalysisMetrics struct {
	// CyclesTotal counts completed analysis cycles.
	// Labels: outcome (ok, degraded, stale)
	CyclesTotal *prometheus.CounterVec

	// CycleDurationSeconds measures wall time of one full cycle, fan-out
	// through publish.
	CycleDurationSeconds prometheus.Histogram

	// TaskFailuresTotal counts scoring tasks that fell back to their default.
	// Labels: task (pillar_pain, triggers, objections, ...)
	TaskFailuresTotal *prometheus.CounterVec

	// FragmentsRejectedTotal counts transcript fragments dropped at ingest.
	// Labels: reason (empty, hallucination, duplicate)
	FragmentsRejectedTotal *prometheus.CounterVec

	// StaleCyclesTotal counts cycle results discarded because a newer
	// cycle finished first.
	StaleCyclesTotal prometheus.Counter

	// ActiveSessions tracks sessions currently held by the store.
	ActiveSessions prometheus.Gauge

	// LiveSubscribers tracks connected websocket dashboard clients.
	LiveSubscribers prometheus.Gauge
}

// DefaultMetrics is the singleton instance of AnalysisMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *AnalysisMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after Prometheus registry is available.
//
// # Outputs
//
//   - *AnalysisMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *AnalysisMetrics {
	DefaultMetrics = &AnalysisMetrics{
		CyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "cycles_total",
				Help:      "Total analysis cycles by outcome",
			},
			[]string{"outcome"},
		),

		CycleDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of one analysis cycle from fan-out to publish",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30},
			},
		),

		TaskFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "task_failures_total",
				Help:      "Scoring tasks that degraded to their documented default",
			},
			[]string{"task"},
		),

		FragmentsRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "fragments_rejected_total",
				Help:      "Transcript fragments dropped at ingest by reason",
			},
			[]string{"reason"},
		),

		StaleCyclesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "stale_cycles_total",
				Help:      "Cycle results discarded because a newer cycle won",
			},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "active_sessions",
				Help:      "Sessions currently held by the session store",
			},
		),

		LiveSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: analysisSubsystem,
				Name:      "live_subscribers",
				Help:      "Connected websocket dashboard clients",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Cycle Outcomes
// =============================================================================

// Outcome categorizes a finished analysis cycle for metrics labeling.
type Outcome string

const (
	// OutcomeOK indicates every scoring task succeeded.
	OutcomeOK Outcome = "ok"

	// OutcomeDegraded indicates at least one task fell back to its default.
	OutcomeDegraded Outcome = "degraded"

	// OutcomeStale indicates the result lost the publish race to a newer cycle.
	OutcomeStale Outcome = "stale"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordCycle records a finished analysis cycle.
//
// # Inputs
//
//   - outcome: How the cycle ended.
//   - seconds: Wall time from fan-out to publish.
func (m *AnalysisMetrics) RecordCycle(outcome Outcome, seconds float64) {
	m.CyclesTotal.WithLabelValues(string(outcome)).Inc()
	m.CycleDurationSeconds.Observe(seconds)
	if outcome == OutcomeStale {
		m.StaleCyclesTotal.Inc()
	}
}

// RecordTaskFailure records one scoring task falling back to its default.
//
// # Inputs
//
//   - task: The task name as reported in MergedSignals.FailedTasks.
func (m *AnalysisMetrics) RecordTaskFailure(task string) {
	m.TaskFailuresTotal.WithLabelValues(task).Inc()
}

// RecordRejectedFragment records a fragment dropped at ingest.
//
// # Inputs
//
//   - reason: The admission rejection reason.
func (m *AnalysisMetrics) RecordRejectedFragment(reason string) {
	m.FragmentsRejectedTotal.WithLabelValues(reason).Inc()
}

// SetActiveSessions updates the session gauge to the store's current size.
func (m *AnalysisMetrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// SubscriberConnected increments the live subscriber gauge.
func (m *AnalysisMetrics) SubscriberConnected() {
	m.LiveSubscribers.Inc()
}

// SubscriberDisconnected decrements the live subscriber gauge.
func (m *AnalysisMetrics) SubscriberDisconnected() {
	m.LiveSubscribers.Dec()
}
