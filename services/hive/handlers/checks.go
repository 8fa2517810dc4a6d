// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the check optimization endpoints.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/hivemind/services/hive/bridge"
)

// HandleOptimizeChecks returns the checks skippable for a task.
//
// POST /v1/checks/optimize. An empty list means "run everything".
func HandleOptimizeChecks(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		skips, err := b.OptimizeVerification(c.Request.Context(), req.toTask())
		if err != nil {
			slog.Error("check optimization failed", "task_id", req.ID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Check optimization failed"})
			return
		}
		if skips == nil {
			skips = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"task_id": req.ID, "skippable_checks": skips})
	}
}

// HandlePrioritizeChecks returns checks ordered by failure frequency.
//
// POST /v1/checks/prioritize.
func HandlePrioritizeChecks(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		order, err := b.PrioritizedChecks(c.Request.Context(), req.toTask())
		if err != nil {
			slog.Error("check prioritization failed", "task_id", req.ID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Check prioritization failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"task_id": req.ID, "checks": order})
	}
}
