// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the consensus round endpoint.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/hivemind/services/hive/consensus"
)

// ConsensusRequest is the body for POST /v1/consensus.
type ConsensusRequest struct {
	Task TaskPayload `json:"task" binding:"required"`

	// Workers overrides the configured worker count when positive.
	Workers int `json:"workers" binding:"omitempty,gt=0"`
}

// HandleConsensus runs one consensus round over the configured workers.
//
// # Description
//
// POST /v1/consensus. An inconclusive round is a normal 200 response
// with status "inconclusive"; the caller decides what to do with it.
// Only a round that could not run at all is an error.
func HandleConsensus(e *consensus.Engine, defaultWorkers int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConsensusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		workers := req.Workers
		if workers <= 0 {
			workers = defaultWorkers
		}

		decision, err := e.BuildConsensus(c.Request.Context(), req.Task.toTask(), workers)
		if err != nil && decision == nil {
			slog.Error("consensus round failed", "task_id", req.Task.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Consensus round failed"})
			return
		}
		if err != nil {
			// Round finished but recording the decision did not; the
			// decision is still worth returning.
			slog.Error("consensus decision not recorded", "task_id", req.Task.ID, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"round_id":   decision.RoundID,
			"task_id":    decision.TaskID,
			"status":     string(decision.Status),
			"value":      decision.Value,
			"confidence": decision.Confidence,
			"agreeing":   decision.Agreeing,
			"responded":  decision.Responded,
			"total":      decision.Total,
		})
	}
}
