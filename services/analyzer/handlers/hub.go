// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the analyzer's HTTP and websocket surface.
package handlers

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/observability"
)

// Hub fans published analysis states out to the websocket dashboards
// subscribed to each session. It implements pipeline.Notifier.
//
// # Thread Safety
//
// Safe for concurrent use. Each connection has its own write lock because
// gorilla/websocket permits at most one concurrent writer per connection.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	metrics *observability.AnalysisMetrics
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(metrics *observability.AnalysisMetrics) *Hub {
	return &Hub{
		subs:    make(map[string]map[*subscriber]struct{}),
		metrics: metrics,
	}
}

// Notify pushes a published analysis state to every subscriber of its
// session. A subscriber whose write fails is dropped; the read loop in the
// live handler notices the closed connection and cleans up.
func (h *Hub) Notify(state datatypes.AnalysisState) {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[state.SessionID]))
	for sub := range h.subs[state.SessionID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.send(state); err != nil {
			slog.Debug("dropping live subscriber after failed write",
				"session_id", state.SessionID, "error", err)
			h.unsubscribe(state.SessionID, sub)
			_ = sub.conn.Close()
		}
	}
}

// subscribe registers a connection for one session's updates.
func (h *Hub) subscribe(sessionID string, conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscriberConnected()
	}
	return sub
}

// unsubscribe removes a connection. Idempotent.
func (h *Hub) unsubscribe(sessionID string, sub *subscriber) {
	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			if h.metrics != nil {
				h.metrics.SubscriberDisconnected()
			}
		}
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
	h.mu.Unlock()
}

// CloseSession disconnects every subscriber of a disposed session.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	set := h.subs[sessionID]
	delete(h.subs, sessionID)
	h.mu.Unlock()

	for sub := range set {
		_ = sub.conn.Close()
		if h.metrics != nil {
			h.metrics.SubscriberDisconnected()
		}
	}
}
