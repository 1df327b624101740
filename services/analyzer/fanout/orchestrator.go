// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fanout runs one analysis cycle as a set of parallel scoring
// tasks against the LLM backend and merges their outputs.
//
// # Description
//
// A cycle fans out eleven independent tasks: seven pillar-scoring tasks
// (one per rubric pillar), trigger detection, objection detection,
// question coverage, and incoherence hinting. Objection detection feeds
// a second stage of three enrichment tasks (fear, reframe, rebuttal)
// that only runs when at least one objection was found.
//
// # Thread Safety
//
// An Orchestrator is immutable after construction and safe for
// concurrent RunCycle calls from multiple sessions.
//
// # Limitations
//
// Task failures never fail the cycle. A failed task contributes its
// documented default (no indicators, no findings) and is listed in
// MergedSignals.FailedTasks so the pipeline can mark the result
// degraded and the metrics layer can count it.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/llm"
)

var tracer = otel.Tracer("copilot.analyzer.fanout")

// ============================================================================
// Configuration
// ============================================================================

// Config bounds each scoring task independently so one slow backend
// call cannot stall the whole cycle.
//
// # Fields
//
//   - PillarTimeout: budget for each of the seven pillar-scoring tasks.
//   - AuxTimeout: budget for trigger, objection, question and hint tasks.
//   - EnrichTimeout: budget for each objection-enrichment task.
//   - RecentWindowBytes: how much of the window tail the trigger and
//     objection tasks see. Pillar scoring and question coverage always
//     read the full window.
type Config struct {
	PillarTimeout     time.Duration
	AuxTimeout        time.Duration
	EnrichTimeout     time.Duration
	RecentWindowBytes int
}

// DefaultConfig returns the production task budgets.
func DefaultConfig() Config {
	return Config{
		PillarTimeout:     8 * time.Second,
		AuxTimeout:        6 * time.Second,
		EnrichTimeout:     6 * time.Second,
		RecentWindowBytes: 2048,
	}
}

// ============================================================================
// Orchestrator
// ============================================================================

type Orchestrator struct {
	client llm.LLMClient
	cfg    Config
}

func NewOrchestrator(client llm.LLMClient, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.PillarTimeout <= 0 {
		cfg.PillarTimeout = def.PillarTimeout
	}
	if cfg.AuxTimeout <= 0 {
		cfg.AuxTimeout = def.AuxTimeout
	}
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = def.EnrichTimeout
	}
	if cfg.RecentWindowBytes <= 0 {
		cfg.RecentWindowBytes = def.RecentWindowBytes
	}
	return &Orchestrator{client: client, cfg: cfg}
}

// generate runs one named scoring task with its own deadline.
func (o *Orchestrator) generate(ctx context.Context, task string,
	timeout time.Duration, prompt string, maxTokens int) (string, error) {

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := o.client.Generate(tctx, prompt, llm.GenerationParams{
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("scoring task %s failed: %w", task, err)
	}
	return out, nil
}

// RunCycle fans out all scoring tasks over the accumulated transcript
// window and returns the merged signals. It never returns an error:
// each failed task is replaced by its default and recorded in
// FailedTasks. The parent ctx cancels all in-flight tasks at once.
func (o *Orchestrator) RunCycle(ctx context.Context, window string) datatypes.MergedSignals {
	ctx, span := tracer.Start(ctx, "AnalysisCycle")
	defer span.End()
	span.SetAttributes(attribute.Int("window_bytes", len(window)))

	merged := datatypes.EmptySignals()
	recent := tailWindow(window, o.cfg.RecentWindowBytes)

	var mu sync.Mutex
	fail := func(task string, err error) {
		slog.Warn("Scoring task degraded to its default", "task", task, "error", err)
		mu.Lock()
		merged.FailedTasks = append(merged.FailedTasks, task)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, pillar := range datatypes.Pillars {
		p := pillar
		task := "pillar_" + p.ID.String()
		g.Go(func() error {
			raw, err := o.generate(gctx, task, o.cfg.PillarTimeout, pillarPrompt(p, window), 256)
			if err != nil {
				fail(task, err)
				return nil
			}
			scores, err := parseIndicatorScores(raw, p)
			if err != nil {
				fail(task, err)
				return nil
			}
			mu.Lock()
			merged.Indicators.Merge(scores)
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		raw, err := o.generate(gctx, "triggers", o.cfg.AuxTimeout, triggersPrompt(recent), 512)
		if err != nil {
			fail("triggers", err)
			return nil
		}
		triggers, err := parseTriggers(raw)
		if err != nil {
			fail("triggers", err)
			return nil
		}
		mu.Lock()
		merged.Triggers = dedupeTriggers(triggers)
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		objections, ok := o.runObjectionStage(gctx, recent, fail)
		if !ok {
			return nil
		}
		mu.Lock()
		merged.Objections = objections
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		raw, err := o.generate(gctx, "questions", o.cfg.AuxTimeout, questionsPrompt(window), 768)
		if err != nil {
			fail("questions", err)
			return nil
		}
		questions, err := parseQuestions(raw)
		if err != nil {
			fail("questions", err)
			return nil
		}
		mu.Lock()
		merged.Questions = questions
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		raw, err := o.generate(gctx, "coherence_hints", o.cfg.AuxTimeout, hintsPrompt(window), 256)
		if err != nil {
			fail("coherence_hints", err)
			return nil
		}
		hints, err := parseHints(raw)
		if err != nil {
			fail("coherence_hints", err)
			return nil
		}
		mu.Lock()
		merged.Hints = hints
		mu.Unlock()
		return nil
	})

	// Task closures swallow their own errors, so Wait only reflects
	// ctx cancellation, which the tasks have already recorded.
	_ = g.Wait()

	verifyEvidence(&merged, window)
	span.SetAttributes(attribute.Int("failed_tasks", len(merged.FailedTasks)))
	return merged
}

// runObjectionStage detects objections and, when any are found, fans
// out the three dependent enrichment tasks. Enrichment failures leave
// the corresponding fields empty; only detection failure aborts the
// stage.
func (o *Orchestrator) runObjectionStage(ctx context.Context, recent string,
	fail func(task string, err error)) ([]datatypes.Objection, bool) {

	raw, err := o.generate(ctx, "objections", o.cfg.AuxTimeout, objectionsPrompt(recent), 512)
	if err != nil {
		fail("objections", err)
		return nil, false
	}
	objections, err := parseObjections(raw)
	if err != nil {
		fail("objections", err)
		return nil, false
	}
	objections = dedupeObjections(objections)
	if len(objections) == 0 {
		return objections, true
	}

	enrich := func(task, prompt string, apply func(i int, s string)) func() error {
		return func() error {
			raw, err := o.generate(ctx, task, o.cfg.EnrichTimeout, prompt, 512)
			if err != nil {
				fail(task, err)
				return nil
			}
			values, err := parseStringList(raw)
			if err != nil {
				fail(task, err)
				return nil
			}
			for i := range objections {
				if i < len(values) {
					apply(i, values[i])
				}
			}
			return nil
		}
	}

	var eg errgroup.Group
	eg.Go(enrich("objection_fears", fearsPrompt(objections),
		func(i int, s string) { objections[i].Fear = s }))
	eg.Go(enrich("objection_reframes", reframesPrompt(objections),
		func(i int, s string) { objections[i].Reframe = s }))
	eg.Go(enrich("objection_rebuttals", rebuttalsPrompt(objections),
		func(i int, s string) { objections[i].Rebuttal = s }))
	_ = eg.Wait()

	return objections, true
}
