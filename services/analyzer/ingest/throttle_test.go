// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestThrottle() (*Throttle, *session.Store, *fakeClock) {
	clock := newFakeClock()
	store := session.NewStore(clock)
	throttle := NewThrottle(Config{
		MinCycleInterval:  4 * time.Second,
		StuckCycleCeiling: 20 * time.Second,
		MaxWindowBytes:    1024,
	}, clock)
	return throttle, store, clock
}

func TestAdmitRejectsEmptyFragment(t *testing.T) {
	throttle, store, _ := newTestThrottle()
	st := store.Create("", nil)

	for _, fragment := range []string{"", "   ", "\n\t"} {
		adm := throttle.Admit(st, fragment)
		assert.False(t, adm.Accepted, "fragment %q", fragment)
		assert.Equal(t, "empty", adm.Reason)
	}
	assert.Empty(t, st.Window())
}

func TestAdmitRejectsHallucinationArtifact(t *testing.T) {
	throttle, store, _ := newTestThrottle()
	st := store.Create("", nil)

	adm := throttle.Admit(st, "Thanks for watching!")
	assert.False(t, adm.Accepted)
	assert.Equal(t, "hallucination", adm.Reason)
	assert.Empty(t, st.Window())
}

func TestAdmitRejectsEchoDuplicate(t *testing.T) {
	throttle, store, clock := newTestThrottle()
	st := store.Create("", nil)

	require.True(t, throttle.Admit(st, "I owe the bank").Accepted)

	clock.advance(time.Second)
	adm := throttle.Admit(st, "I owe the bank")
	assert.False(t, adm.Accepted)
	assert.Equal(t, "duplicate", adm.Reason)
}

func TestAdmitFirstFragmentStartsCycle(t *testing.T) {
	throttle, store, _ := newTestThrottle()
	st := store.Create("", nil)

	adm := throttle.Admit(st, "I'm three payments behind")
	require.True(t, adm.Accepted)
	require.True(t, adm.ShouldRunCycle)
	assert.Equal(t, uint64(1), adm.Snapshot.Seq)
	assert.Equal(t, "I'm three payments behind", adm.Snapshot.Window)
}

func TestAdmitBuffersWithinMinInterval(t *testing.T) {
	throttle, store, clock := newTestThrottle()
	st := store.Create("", nil)

	first := throttle.Admit(st, "the bank called again")
	require.True(t, first.ShouldRunCycle)
	_, _, ok := st.FinishCycle(first.Snapshot.Seq, nil)
	require.True(t, ok)

	// Arrives too soon: buffered into the window, no cycle.
	clock.advance(time.Second)
	second := throttle.Admit(st, "they mentioned foreclosure")
	assert.True(t, second.Accepted)
	assert.False(t, second.ShouldRunCycle)
	assert.Equal(t, "interval", second.Reason)

	// The next cycle sees both fragments.
	clock.advance(4 * time.Second)
	third := throttle.Admit(st, "I need this gone")
	require.True(t, third.ShouldRunCycle)
	assert.Contains(t, third.Snapshot.Window, "they mentioned foreclosure")
	assert.Contains(t, third.Snapshot.Window, "I need this gone")
}

func TestAdmitDefersWhileCycleInFlight(t *testing.T) {
	throttle, store, clock := newTestThrottle()
	st := store.Create("", nil)

	require.True(t, throttle.Admit(st, "first fragment").ShouldRunCycle)

	clock.advance(5 * time.Second)
	adm := throttle.Admit(st, "second fragment")
	assert.True(t, adm.Accepted)
	assert.False(t, adm.ShouldRunCycle)
	assert.Equal(t, "in_flight", adm.Reason)
}

func TestAdmitRecoversStuckCycle(t *testing.T) {
	throttle, store, clock := newTestThrottle()
	st := store.Create("", nil)

	require.True(t, throttle.Admit(st, "first fragment").ShouldRunCycle)

	// The cycle never finished. Past the ceiling the flag is forcibly
	// cleared and the arriving fragment starts a fresh cycle.
	clock.advance(21 * time.Second)
	adm := throttle.Admit(st, "hello, are you still there")
	require.True(t, adm.Accepted)
	assert.True(t, adm.StuckCleared)
	assert.True(t, adm.ShouldRunCycle)
	assert.Equal(t, uint64(2), adm.Snapshot.Seq)
}

func TestNewThrottleAppliesDefaults(t *testing.T) {
	throttle := NewThrottle(Config{}, nil)
	assert.Equal(t, DefaultConfig().MinCycleInterval, throttle.cfg.MinCycleInterval)
	assert.Equal(t, 5*DefaultConfig().MinCycleInterval, throttle.cfg.StuckCycleCeiling)
	assert.Equal(t, DefaultConfig().MaxWindowBytes, throttle.cfg.MaxWindowBytes)
}
