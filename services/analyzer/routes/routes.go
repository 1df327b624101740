// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/pkg/extensions"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/handlers"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/history"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/middleware"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/observability"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/pipeline"
	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/session"
)

// Deps carries everything the route table needs. The analyzer service
// builds one of these in its init path.
type Deps struct {
	Store    *session.Store
	Pipeline *pipeline.Pipeline
	Hub      *handlers.Hub
	Sink     *history.Sink
	Metrics  *observability.AnalysisMetrics
	Auth     extensions.AuthProvider

	// RateLimitRPS and RateLimitBurst bound fragment ingest; zero RPS
	// disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck(deps.Store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Auth))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(deps.Store, deps.Metrics))
			sessions.DELETE("/:sessionId", handlers.DisposeSession(deps.Store, deps.Hub, deps.Metrics))
			sessions.GET("/:sessionId/analysis", handlers.GetAnalysis(deps.Store))
			sessions.GET("/:sessionId/history", handlers.GetTimeline(deps.Store, deps.Sink))
			sessions.PUT("/:sessionId/weights", handlers.UpdateWeights(deps.Store))
			sessions.GET("/:sessionId/live", handlers.HandleLive(deps.Store, deps.Hub))
			sessions.POST("/:sessionId/fragments",
				middleware.RateLimitMiddleware(deps.RateLimitRPS, deps.RateLimitBurst),
				handlers.SubmitFragment(deps.Store, deps.Pipeline))
		}
	}
}
