// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// fakeClock is a manually advanced clock for deterministic timing tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

const (
	testInterval = 4 * time.Second
	testCeiling  = 20 * time.Second
)

func newTestState() (*State, *fakeClock) {
	clock := newFakeClock()
	return newState("s-1", "", datatypes.NewWeightConfig(nil), clock.Now()), clock
}

// =============================================================================
// Window
// =============================================================================

func TestAppendDropsEchoOfPreviousFragment(t *testing.T) {
	st, clock := newTestState()

	assert.True(t, st.Append("I'm behind on payments", clock.Now(), 1024))
	assert.False(t, st.Append("I'm behind on payments", clock.Now(), 1024))
	assert.True(t, st.Append("three months now", clock.Now(), 1024))

	// A repeat that is not immediately consecutive is genuine speech.
	assert.True(t, st.Append("I'm behind on payments", clock.Now(), 1024))
}

func TestAppendTrimsOldestAtWordBoundary(t *testing.T) {
	st, clock := newTestState()

	st.Append("alpha bravo charlie", clock.Now(), 1024)
	st.Append("delta echo", clock.Now(), 14)

	// Trim cuts from the front, never mid-word, newest content intact.
	w := st.Window()
	assert.LessOrEqual(t, len(w), 14)
	assert.Equal(t, "delta echo", w)
	assert.False(t, len(w) > 0 && w[0] == ' ')
}

// =============================================================================
// Cycle Sequencing
// =============================================================================

func TestTryBeginCycleSnapshotsState(t *testing.T) {
	st, clock := newTestState()
	st.Append("hello there", clock.Now(), 1024)

	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, res.Started)
	assert.Equal(t, uint64(1), res.Seq)
	assert.Equal(t, "hello there", res.Window)
	assert.NotNil(t, res.Indicators)
	assert.NotNil(t, res.Weights)
}

func TestTryBeginCycleRejectsWhileInFlight(t *testing.T) {
	st, clock := newTestState()

	require.True(t, st.TryBeginCycle(clock.Now(), testInterval, testCeiling).Started)

	clock.advance(time.Second)
	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	assert.False(t, res.Started)
	assert.Equal(t, "in_flight", res.Reason)
}

func TestTryBeginCycleEnforcesMinInterval(t *testing.T) {
	st, clock := newTestState()

	first := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, first.Started)
	_, _, ok := st.FinishCycle(first.Seq, nil)
	require.True(t, ok)

	clock.advance(time.Second)
	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	assert.False(t, res.Started)
	assert.Equal(t, "interval", res.Reason)

	clock.advance(testInterval)
	assert.True(t, st.TryBeginCycle(clock.Now(), testInterval, testCeiling).Started)
}

func TestTryBeginCycleClearsStuckFlag(t *testing.T) {
	st, clock := newTestState()

	first := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, first.Started)

	// The fan-out hung; the flag has been set past the hard ceiling.
	clock.advance(testCeiling + time.Second)
	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	assert.True(t, res.Started)
	assert.True(t, res.StuckCleared)
	assert.Equal(t, uint64(2), res.Seq)
}

func TestFinishCycleDiscardsStaleSeq(t *testing.T) {
	st, clock := newTestState()

	first := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, first.Started)

	clock.advance(testCeiling + time.Second)
	second := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, second.Started)

	// The wedged first cycle limps home after recovery: its merge must not
	// corrupt the mapping, and the in-flight flag belongs to cycle two.
	_, _, ok := st.FinishCycle(first.Seq, datatypes.IndicatorSet{1: 9})
	assert.False(t, ok)

	indicators, _, ok := st.FinishCycle(second.Seq, datatypes.IndicatorSet{1: 7})
	require.True(t, ok)
	assert.Equal(t, 7.0, indicators[1])
}

func TestFinishCycleMergesLatestWins(t *testing.T) {
	st, clock := newTestState()

	first := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	indicators, _, ok := st.FinishCycle(first.Seq, datatypes.IndicatorSet{1: 4, 6: 8})
	require.True(t, ok)
	assert.Equal(t, 4.0, indicators[1])

	clock.advance(testInterval + time.Second)
	second := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	indicators, _, ok = st.FinishCycle(second.Seq, datatypes.IndicatorSet{1: 9})
	require.True(t, ok)

	// Indicator 1 was rescored; indicator 6 persists from the prior cycle.
	assert.Equal(t, 9.0, indicators[1])
	assert.Equal(t, 8.0, indicators[6])
}

func TestAbortCycleClearsFlagWithoutMerge(t *testing.T) {
	st, clock := newTestState()

	first := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, first.Started)
	st.AbortCycle(first.Seq)

	clock.advance(testInterval + time.Second)
	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	assert.True(t, res.Started)
	assert.Empty(t, res.Indicators)
}

// =============================================================================
// Publish
// =============================================================================

func TestPublishDiscardsOlderSequence(t *testing.T) {
	st, _ := newTestState()

	require.True(t, st.Publish(datatypes.AnalysisState{SessionID: st.ID, CycleSeq: 2}))
	assert.False(t, st.Publish(datatypes.AnalysisState{SessionID: st.ID, CycleSeq: 1}))

	latest, ok := st.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.CycleSeq)
}

func TestLatestBeforeFirstPublish(t *testing.T) {
	st, _ := newTestState()
	_, ok := st.Latest()
	assert.False(t, ok)
}

func TestSetWeightsAppliesToNextCycle(t *testing.T) {
	st, clock := newTestState()

	heavy := datatypes.NewWeightConfig([]datatypes.WeightOverride{
		{Pillar: datatypes.PillarPain, Weight: 4.0},
	})
	st.SetWeights(heavy)

	res := st.TryBeginCycle(clock.Now(), testInterval, testCeiling)
	require.True(t, res.Started)
	assert.Equal(t, 4.0, res.Weights.WeightOf(datatypes.PillarPain))
}
