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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/hivemind/services/hive/bridge"
	"github.com/AleutianAI/hivemind/services/hive/consensus"
	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/threshold"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestBridge(t *testing.T) *bridge.Bridge {
	t.Helper()
	store := pattern.NewMemStore()
	t.Cleanup(func() { store.Close() })
	v, err := threshold.NewValue(threshold.DefaultInitial, threshold.DefaultMin, threshold.DefaultMax)
	require.NoError(t, err)
	c := threshold.NewController(v, threshold.NewWindow(threshold.DefaultWindowSize), threshold.DefaultParams(), nil)
	return bridge.New(store, c)
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// agreeingExecutor always returns the same value.
type agreeingExecutor struct{ value string }

func (a *agreeingExecutor) Execute(ctx context.Context, task *datatypes.Task, workerID string) (*datatypes.WorkerResult, error) {
	return &datatypes.WorkerResult{
		WorkerID: workerID, TaskID: task.ID, Value: a.value, Success: true,
	}, nil
}

// TestHandleLearn verifies evidence ingestion over HTTP.
func TestHandleLearn(t *testing.T) {
	b := newTestBridge(t)
	router := gin.New()
	router.POST("/v1/learn", HandleLearn(b))

	t.Run("records valid evidence", func(t *testing.T) {
		w := postJSON(router, "/v1/learn", gin.H{
			"task":    gin.H{"id": "t1", "signature": "implement parser"},
			"outcome": gin.H{"truth_score": 0.92, "passed": true},
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/v1/learn", bytes.NewBufferString("{not json"))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing task fields", func(t *testing.T) {
		w := postJSON(router, "/v1/learn", gin.H{
			"task":    gin.H{"id": "t1"},
			"outcome": gin.H{"truth_score": 0.9, "passed": true},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestHandlePredict verifies prediction reflects learned evidence.
func TestHandlePredict(t *testing.T) {
	b := newTestBridge(t)
	router := gin.New()
	router.POST("/v1/learn", HandleLearn(b))
	router.POST("/v1/predict", HandlePredict(b))

	t.Run("default score with no evidence", func(t *testing.T) {
		w := postJSON(router, "/v1/predict", gin.H{"id": "t1", "signature": "implement parser"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0.5, resp["truth_score"])
	})

	t.Run("learned evidence shifts the score", func(t *testing.T) {
		w := postJSON(router, "/v1/learn", gin.H{
			"task":    gin.H{"id": "t1", "signature": "implement parser"},
			"outcome": gin.H{"truth_score": 0.9, "passed": true},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = postJSON(router, "/v1/predict", gin.H{"id": "t1", "signature": "implement parser"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.InDelta(t, 0.9, resp["truth_score"].(float64), 1e-9)
	})
}

// TestHandleThreshold verifies the threshold endpoints.
func TestHandleThreshold(t *testing.T) {
	b := newTestBridge(t)
	router := gin.New()
	router.GET("/v1/threshold", HandleGetThreshold(b))
	router.POST("/v1/threshold/adapt", HandleAdaptThreshold(b))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/threshold", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, threshold.DefaultInitial, resp["threshold"])

	w = postJSON(router, "/v1/threshold/adapt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unchanged", resp["direction"], "empty window adapts nothing")
}

// TestHandleConsensus verifies the consensus endpoint end to end.
func TestHandleConsensus(t *testing.T) {
	b := newTestBridge(t)
	engine := consensus.NewEngine(&agreeingExecutor{value: "A"}, consensus.Config{},
		consensus.WithRecorder(b))
	router := gin.New()
	router.POST("/v1/consensus", HandleConsensus(engine, 5))

	t.Run("unanimous workers decide", func(t *testing.T) {
		w := postJSON(router, "/v1/consensus", gin.H{
			"task": gin.H{"id": "t1", "signature": "implement parser"},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "decided", resp["status"])
		assert.Equal(t, "A", resp["value"])
		assert.Equal(t, 1.0, resp["confidence"])
		assert.Equal(t, float64(5), resp["responded"])
	})

	t.Run("worker count override", func(t *testing.T) {
		w := postJSON(router, "/v1/consensus", gin.H{
			"task":    gin.H{"id": "t1", "signature": "implement parser"},
			"workers": 3,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(3), resp["total"])
	})

	t.Run("rejects missing task", func(t *testing.T) {
		w := postJSON(router, "/v1/consensus", gin.H{"workers": 3})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestHandleChecks verifies the check optimization endpoints.
func TestHandleChecks(t *testing.T) {
	b := newTestBridge(t)
	router := gin.New()
	router.POST("/v1/learn", HandleLearn(b))
	router.POST("/v1/checks/optimize", HandleOptimizeChecks(b))
	router.POST("/v1/checks/prioritize", HandlePrioritizeChecks(b))

	t.Run("nothing skippable without evidence", func(t *testing.T) {
		w := postJSON(router, "/v1/checks/optimize", gin.H{"id": "t1", "signature": "implement parser"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			SkippableChecks []string `json:"skippable_checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.SkippableChecks)
	})

	t.Run("default order without failure history", func(t *testing.T) {
		w := postJSON(router, "/v1/checks/prioritize", gin.H{"id": "t1", "signature": "implement parser"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Checks []string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"type_check", "syntax_check", "lint_check"}, resp.Checks)
	})

	t.Run("failure history reorders checks", func(t *testing.T) {
		w := postJSON(router, "/v1/learn", gin.H{
			"task": gin.H{"id": "t1", "signature": "implement parser"},
			"outcome": gin.H{
				"truth_score": 0.3,
				"passed":      false,
				"failure_kinds": []gin.H{
					{"kind": "syntax_errors", "frequency": 0.7},
					{"kind": "type_errors", "frequency": 0.2},
				},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		w = postJSON(router, "/v1/checks/prioritize", gin.H{"id": "t1", "signature": "implement parser"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Checks []string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"syntax_check", "type_check"}, resp.Checks)
	})
}

// TestHealthCheck verifies the liveness endpoint.
func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}
