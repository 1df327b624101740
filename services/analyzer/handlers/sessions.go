// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/history"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/observability"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

// CreateSession starts a new conversation session. The session id is always
// generated server-side; the request never carries one.
func CreateSession(store *session.Store, metrics *observability.AnalysisMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The body is optional; an empty POST starts a default session.
		var req datatypes.CreateSessionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Nil weights let the store apply its current defaults, which may
		// have been hot-reloaded from the weights file.
		var weights datatypes.WeightConfig
		if len(req.Weights) > 0 {
			weights = datatypes.NewWeightConfig(req.Weights)
		}
		st := store.Create(req.Label, weights)
		if metrics != nil {
			metrics.SetActiveSessions(store.Len())
		}
		c.JSON(http.StatusCreated, gin.H{
			"session_id": st.ID,
			"label":      st.Label,
			"created_at": st.CreatedAt,
		})
	}
}

// DisposeSession ends a conversation. The stop marker does not wait for an
// in-flight cycle; a cycle finishing afterwards settles into unreferenced
// state and is collected with it.
func DisposeSession(store *session.Store, hub *Hub, metrics *observability.AnalysisMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		if !store.Dispose(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
			return
		}
		hub.CloseSession(id)
		if metrics != nil {
			metrics.SetActiveSessions(store.Len())
		}
		c.Status(http.StatusNoContent)
	}
}

// GetAnalysis returns the latest published analysis snapshot for a session,
// for dashboards that poll instead of holding a websocket.
func GetAnalysis(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		latest, ok := st.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analysis published yet"})
			return
		}
		c.JSON(http.StatusOK, latest)
	}
}

// UpdateWeights replaces a session's pillar weights mid-call. The new
// configuration applies from the next cycle; an in-flight cycle keeps the
// snapshot it started with.
func UpdateWeights(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		var req datatypes.UpdateWeightsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		weights := datatypes.NewWeightConfig(req.Weights)
		st.SetWeights(weights)
		c.JSON(http.StatusOK, gin.H{
			"session_id": st.ID,
			"weights":    weights,
			"max_score":  weights.MaxScore(),
		})
	}
}

// GetTimeline returns the session's composite score series from the history
// sink. 404 when history is disabled so dashboards can hide the chart.
func GetTimeline(store *session.Store, sink *history.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sink == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "score history is disabled"})
			return
		}
		st, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		lookback := 4 * time.Hour
		if v := c.Query("lookback"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lookback duration"})
				return
			}
			lookback = d
		}

		points, err := sink.Timeline(c.Request.Context(), st.ID, lookback)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": st.ID, "points": points})
	}
}

// HealthCheck reports liveness and the current session count.
func HealthCheck(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": store.Len(),
		})
	}
}
