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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// Clock abstracts time for the store and sweeper so tests control it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock implementation used in production.
func SystemClock() Clock { return systemClock{} }

// =============================================================================
// Keyed Store
// =============================================================================

// Store is the explicit keyed session store: one entry per live
// conversation. It is constructed once and injected wherever session access
// is needed, so tests can instantiate isolated stores.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
	defaults datatypes.WeightConfig
	clock    Clock
}

// NewStore creates an empty store. A nil clock uses the system clock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock()
	}
	return &Store{
		sessions: make(map[string]*State),
		clock:    clock,
	}
}

// Create allocates session state for a new conversation and returns it.
// The id is generated here; session boundary signals never carry one in.
func (st *Store) Create(label string, weights datatypes.WeightConfig) *State {
	if weights == nil {
		st.mu.RLock()
		weights = st.defaults
		st.mu.RUnlock()
	}
	if weights == nil {
		weights = datatypes.NewWeightConfig(nil)
	}
	id := uuid.New().String()
	s := newState(id, label, weights, st.clock.Now())

	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	slog.Info("session created", "session_id", id, "label", label)
	return s
}

// Get returns the session with the given id.
func (st *Store) Get(id string) (*State, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return s, nil
}

// Dispose removes a session. The stop marker does not wait for an in-flight
// cycle: a cycle finishing after disposal settles into a State no longer in
// the map and is garbage collected with it.
func (st *Store) Dispose(id string) bool {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		slog.Info("session disposed", "session_id", id)
	}
	return ok
}

// SetDefaultWeights replaces the weight configuration applied to sessions
// created without an explicit one. Existing sessions keep the weights they
// were created with; the operator adjusts those through the weights route.
func (st *Store) SetDefaultWeights(weights datatypes.WeightConfig) {
	st.mu.Lock()
	st.defaults = weights
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// idleSessions returns ids of sessions with no accepted fragment for at
// least maxIdle.
func (st *Store) idleSessions(maxIdle time.Duration) []string {
	now := st.clock.Now()
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []string
	for id, s := range st.sessions {
		if now.Sub(s.LastActivity()) >= maxIdle {
			out = append(out, id)
		}
	}
	return out
}
