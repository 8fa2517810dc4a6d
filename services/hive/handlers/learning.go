// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP request handlers for the hive service.
//
// This file implements the learning surface: evidence ingestion,
// prediction, and threshold endpoints.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/hivemind/services/hive/bridge"
	"github.com/AleutianAI/hivemind/services/hive/datatypes"
)

// LearnRequest is the body for POST /v1/learn.
type LearnRequest struct {
	Task    TaskPayload    `json:"task" binding:"required"`
	Outcome OutcomePayload `json:"outcome" binding:"required"`
}

// TaskPayload identifies the work a request refers to.
type TaskPayload struct {
	ID        string            `json:"id" binding:"required"`
	Signature string            `json:"signature" binding:"required"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// OutcomePayload carries a verification result.
type OutcomePayload struct {
	TruthScore   float64                 `json:"truth_score" binding:"min=0,max=1"`
	Passed       bool                    `json:"passed"`
	FailureKinds []datatypes.FailureStat `json:"failure_kinds,omitempty"`
}

func (p TaskPayload) toTask() *datatypes.Task {
	return &datatypes.Task{ID: p.ID, Signature: p.Signature, Metadata: p.Metadata}
}

// HandleLearn records a completed task's outcome as evidence.
//
// # Description
//
// POST /v1/learn. The sole external write path into the evidence store;
// a store failure returns 503 and leaves no partial state behind.
func HandleLearn(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LearnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		outcome := &datatypes.VerificationOutcome{
			TruthScore:   req.Outcome.TruthScore,
			Passed:       req.Outcome.Passed,
			FailureKinds: req.Outcome.FailureKinds,
		}
		if err := b.LearnFromOutcome(c.Request.Context(), req.Task.toTask(), outcome); err != nil {
			slog.Error("failed to record evidence", "task_id", req.Task.ID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to record evidence"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
	}
}

// HandlePredict returns the expected truth score for a task.
//
// POST /v1/predict. A task with no matching evidence yields the default
// score, not an error.
func HandlePredict(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TaskPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		score, err := b.PredictTruthScore(c.Request.Context(), req.toTask())
		if err != nil {
			slog.Error("prediction failed", "task_id", req.ID, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Prediction failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"task_id": req.ID, "truth_score": score})
	}
}

// HandleGetThreshold reports the current acceptance threshold.
//
// GET /v1/threshold.
func HandleGetThreshold(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"threshold": b.Threshold()})
	}
}

// HandleAdaptThreshold re-evaluates the threshold against the recent
// evidence window.
//
// POST /v1/threshold/adapt.
func HandleAdaptThreshold(b *bridge.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		dir, value := b.AdaptThreshold()
		c.JSON(http.StatusOK, gin.H{"direction": string(dir), "threshold": value})
	}
}
