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

	"github.com/gin-gonic/gin"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/pipeline"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

// SubmitFragment accepts one committed transcript fragment from the
// speech-to-text collaborator and runs the full admission path. The
// response reports only what happened to the fragment; analysis results
// arrive over the live channel, never here.
//
// 202 means the fragment is in the window (a cycle may or may not have
// started); 200 with accepted=false means it was deliberately dropped.
// Drops are successes from the collaborator's point of view: it should
// keep sending, not retry.
func SubmitFragment(store *session.Store, pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := store.Get(c.Param("sessionId"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		var req datatypes.FragmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		adm := pipe.HandleFragment(c.Request.Context(), st, req.WindowText())

		status := http.StatusAccepted
		if !adm.Accepted {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{
			"accepted":      adm.Accepted,
			"cycle_started": adm.ShouldRunCycle,
			"reason":        adm.Reason,
		})
	}
}
