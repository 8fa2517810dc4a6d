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

	"github.com/AleutianAI/hivemind/services/hive/bridge"
	"github.com/AleutianAI/hivemind/services/hive/consensus"
	"github.com/AleutianAI/hivemind/services/hive/handlers"
)

// SetupRoutes registers the hive service endpoints on the router.
func SetupRoutes(router *gin.Engine, b *bridge.Bridge, engine *consensus.Engine, defaultWorkers int) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/learn", handlers.HandleLearn(b))
		v1.POST("/predict", handlers.HandlePredict(b))
		v1.POST("/consensus", handlers.HandleConsensus(engine, defaultWorkers))
		v1.GET("/threshold", handlers.HandleGetThreshold(b))
		v1.POST("/threshold/adapt", handlers.HandleAdaptThreshold(b))
		// Check optimization routes
		checks := v1.Group("/checks")
		{
			checks.POST("/optimize", handlers.HandleOptimizeChecks(b))
			checks.POST("/prioritize", handlers.HandlePrioritizeChecks(b))
		}
	}
}
