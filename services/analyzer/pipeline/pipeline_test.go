// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/ingest"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

// fakeRunner returns a canned MergedSignals per cycle.
type fakeRunner struct {
	mu      sync.Mutex
	signals datatypes.MergedSignals
	cycles  int
}

func (f *fakeRunner) RunCycle(_ context.Context, _ string) datatypes.MergedSignals {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles++
	return f.signals
}

// collector records every notified state.
type collector struct {
	mu     sync.Mutex
	states []datatypes.AnalysisState
}

func (c *collector) Notify(state datatypes.AnalysisState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, state)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

func (c *collector) last() datatypes.AnalysisState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[len(c.states)-1]
}

func newTestPipeline(runner CycleRunner, notif *collector) (*Pipeline, *session.Store) {
	store := session.NewStore(nil)
	throttle := ingest.NewThrottle(ingest.DefaultConfig(), nil)
	return New(throttle, runner, notif, nil, nil, nil), store
}

func TestHandleFragmentPublishesScoredState(t *testing.T) {
	runner := &fakeRunner{signals: func() datatypes.MergedSignals {
		m := datatypes.EmptySignals()
		m.Indicators = datatypes.IndicatorSet{1: 9, 2: 8, 6: 8, 7: 9}
		m.Triggers = []datatypes.Trigger{{Name: "deadline fear", Evidence: "the auction is in two weeks", Score: 8}}
		return m
	}()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("test call", nil)

	adm := p.HandleFragment(context.Background(), st, "the auction is in two weeks and I am behind")
	require.True(t, adm.Accepted)
	require.True(t, adm.ShouldRunCycle)

	require.Eventually(t, func() bool { return notif.count() == 1 }, time.Second, 5*time.Millisecond)

	state := notif.last()
	assert.Equal(t, st.ID, state.SessionID)
	assert.Equal(t, uint64(1), state.CycleSeq)
	assert.False(t, state.Degraded)
	assert.Greater(t, state.Result.Score, 0.0)
	require.Len(t, state.Triggers, 1)

	latest, ok := st.Latest()
	require.True(t, ok)
	assert.Equal(t, state.CycleSeq, latest.CycleSeq)
}

func TestHandleFragmentDegradedOnPartialFailure(t *testing.T) {
	runner := &fakeRunner{signals: func() datatypes.MergedSignals {
		m := datatypes.EmptySignals()
		m.Indicators = datatypes.IndicatorSet{1: 7}
		m.FailedTasks = []string{"triggers"}
		return m
	}()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("test call", nil)

	p.HandleFragment(context.Background(), st, "I lost my job in March")
	require.Eventually(t, func() bool { return notif.count() == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, notif.last().Degraded)
	// Partial failure still produces a real score from what did arrive.
	assert.NotEqual(t, datatypes.EmptyAnalysis(st.ID, 1, nil).Result, notif.last().Result)
}

func TestHandleFragmentTotalFaultPublishesPlaceholder(t *testing.T) {
	failed := []string{
		"pillar_pain", "pillar_urgency", "pillar_money", "pillar_decisiveness",
		"pillar_trust", "pillar_engagement", "pillar_price_sensitivity",
		"triggers", "objections", "questions", "coherence_hints",
	}
	runner := &fakeRunner{signals: func() datatypes.MergedSignals {
		m := datatypes.EmptySignals()
		m.FailedTasks = failed
		return m
	}()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("test call", nil)

	p.HandleFragment(context.Background(), st, "anyone there")
	require.Eventually(t, func() bool { return notif.count() == 1 }, time.Second, 5*time.Millisecond)

	state := notif.last()
	assert.True(t, state.Degraded)
	assert.Equal(t, datatypes.LevelCool, state.Result.Level)
	// The placeholder is a complete, renderable payload.
	assert.Len(t, state.Result.Pillars, datatypes.PillarCount)
	assert.NotNil(t, state.Triggers)
	assert.NotNil(t, state.Objections)
}

func TestHandleFragmentTotalFaultKeepsSessionWeights(t *testing.T) {
	failed := []string{
		"pillar_pain", "pillar_urgency", "pillar_money", "pillar_decisiveness",
		"pillar_trust", "pillar_engagement", "pillar_price_sensitivity",
		"triggers", "objections", "questions", "coherence_hints",
	}
	runner := &fakeRunner{signals: func() datatypes.MergedSignals {
		m := datatypes.EmptySignals()
		m.FailedTasks = failed
		return m
	}()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)

	// Doubling pain raises the session max from 100 to 120; the placeholder
	// must reflect that, not the defaults, or its max disagrees with every
	// healthy payload of the same session.
	weights := datatypes.NewWeightConfig([]datatypes.WeightOverride{
		{Pillar: datatypes.PillarPain, Weight: 4.0},
	})
	st := store.Create("custom weights call", weights)

	p.HandleFragment(context.Background(), st, "anyone there")
	require.Eventually(t, func() bool { return notif.count() == 1 }, time.Second, 5*time.Millisecond)

	state := notif.last()
	require.True(t, state.Degraded)
	assert.InDelta(t, weights.MaxScore(), state.Result.Max, 1e-9)
	for _, ps := range state.Result.Pillars {
		assert.Equal(t, weights.WeightOf(ps.Pillar), ps.Weight, ps.Name)
	}
}

func TestHandleFragmentDistressedSellerScenario(t *testing.T) {
	// Strong pain and urgency with weak decisiveness: the desire-versus-
	// decisiveness contradiction fires and pulls the composite down by its
	// fixed penalty.
	runner := &fakeRunner{signals: func() datatypes.MergedSignals {
		m := datatypes.EmptySignals()
		m.Indicators = datatypes.IndicatorSet{
			1: 8, 2: 8, // pain
			6: 8, 7: 8, // urgency
			14: 3, 15: 3, // decisiveness
		}
		return m
	}()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("distressed seller", nil)

	p.HandleFragment(context.Background(), st,
		"I am three months behind on payments, the auction is in two weeks, but I want to wait and think about it")
	require.Eventually(t, func() bool { return notif.count() == 1 }, time.Second, 5*time.Millisecond)

	state := notif.last()
	require.Len(t, state.Result.Incoherence, 1)
	assert.Equal(t, "desire_vs_decisiveness", state.Result.Incoherence[0].RuleID)
	assert.Equal(t, -8.0, state.Result.PenaltyTotal)

	// 16 + 12 + 7.5 + 4.5 + 6.25 + 6.25 + 6 = 58.5 weighted, minus 8.
	assert.InDelta(t, 50.5, state.Result.Score, 1e-9)
	assert.Equal(t, datatypes.LevelWarm, state.Result.Level)
	assert.Empty(t, state.Result.Overrides)
}

func TestHandleFragmentThrottlesSecondFragment(t *testing.T) {
	runner := &fakeRunner{signals: datatypes.EmptySignals()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("test call", nil)

	first := p.HandleFragment(context.Background(), st, "first fragment")
	second := p.HandleFragment(context.Background(), st, "second fragment")

	require.True(t, first.ShouldRunCycle)
	assert.True(t, second.Accepted)
	assert.False(t, second.ShouldRunCycle)
	assert.Contains(t, []string{"interval", "in_flight"}, second.Reason)
}

func TestHandleFragmentRejectsDuplicate(t *testing.T) {
	runner := &fakeRunner{signals: datatypes.EmptySignals()}
	notif := &collector{}
	p, store := newTestPipeline(runner, notif)
	st := store.Create("test call", nil)

	p.HandleFragment(context.Background(), st, "same words")
	adm := p.HandleFragment(context.Background(), st, "same words")
	assert.False(t, adm.Accepted)
	assert.Equal(t, "duplicate", adm.Reason)
}
