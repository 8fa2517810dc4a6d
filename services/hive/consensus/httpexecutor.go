// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements an Executor that delegates task execution to an
// external worker service over HTTP.

package consensus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
)

// workerRequest is the body POSTed to the worker service.
type workerRequest struct {
	WorkerID string          `json:"worker_id"`
	Task     *datatypes.Task `json:"task"`
}

// HTTPExecutor runs workers by POSTing the task to an external worker
// service and reading the WorkerResult it returns.
//
// # Description
//
// Each Execute call is one POST to the configured URL. The worker
// service is expected to respond 200 with a WorkerResult JSON body;
// any other status or a transport error excludes that worker from the
// round (the engine treats executor errors as non-fatal).
//
// # Thread Safety
//
// Safe for concurrent use; http.Client is safe for concurrent use.
type HTTPExecutor struct {
	url    string
	client *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor targeting the worker service
// at url. A nil client uses a default with a 60-second timeout; the
// per-round deadline still applies through the request context.
func NewHTTPExecutor(url string, client *http.Client) *HTTPExecutor {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPExecutor{url: url, client: client}
}

// Execute POSTs the task to the worker service and decodes the result.
func (e *HTTPExecutor) Execute(ctx context.Context, task *datatypes.Task, workerID string) (*datatypes.WorkerResult, error) {
	body, err := json.Marshal(workerRequest{WorkerID: workerID, Task: task})
	if err != nil {
		return nil, fmt.Errorf("encode worker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker %s: %w", workerID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("worker %s: unexpected status %d", workerID, resp.StatusCode)
	}

	var result datatypes.WorkerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("worker %s: decode result: %w", workerID, err)
	}
	if result.WorkerID == "" {
		result.WorkerID = workerID
	}
	if result.TaskID == "" {
		result.TaskID = task.ID
	}
	return &result, nil
}

var _ Executor = (*HTTPExecutor)(nil)
