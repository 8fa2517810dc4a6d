// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/hivemind/pkg/logging"
	"github.com/AleutianAI/hivemind/services/hive/bridge"
	"github.com/AleutianAI/hivemind/services/hive/consensus"
	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/threshold"
)

var errNoWorkerURL = errors.New("worker service URL is required")

// stubExecutor produces the shared value with probability agreement,
// otherwise a unique divergent value.
type stubExecutor struct {
	agreement float64

	mu  sync.Mutex
	rng *rand.Rand
}

func newStubExecutor(agreement float64, seed int64) *stubExecutor {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &stubExecutor{
		agreement: agreement,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (s *stubExecutor) Execute(_ context.Context, task *datatypes.Task, workerID string) (*datatypes.WorkerResult, error) {
	s.mu.Lock()
	agrees := s.rng.Float64() < s.agreement
	s.mu.Unlock()

	value := "agreed:" + task.Signature
	if !agrees {
		value = "divergent:" + uuid.NewString()
	}
	return &datatypes.WorkerResult{
		WorkerID: workerID,
		TaskID:   task.ID,
		Value:    value,
		Score:    1,
		Success:  true,
	}, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "simulate"})
	defer logger.Close()

	store := pattern.NewMemStore()
	defer store.Close()

	value, err := threshold.NewValue(threshold.DefaultInitial, threshold.DefaultMin, threshold.DefaultMax)
	if err != nil {
		return err
	}
	controller := threshold.NewController(value,
		threshold.NewWindow(threshold.DefaultWindowSize), threshold.DefaultParams(), logger.Slog())
	b := bridge.New(store, controller, bridge.WithLogger(logger.Slog()))
	engine := consensus.NewEngine(
		newStubExecutor(simAgreement, simSeed),
		consensus.Config{},
		consensus.WithRecorder(b),
		consensus.WithLogger(logger.Slog()),
	)

	ctx := context.Background()
	decided, inconclusive := 0, 0
	for i := 0; i < simRounds; i++ {
		task := &datatypes.Task{
			ID:        fmt.Sprintf("sim-%d", i),
			Signature: "simulated workload",
		}
		decision, err := engine.BuildConsensus(ctx, task, simWorkers)
		if err != nil {
			return err
		}
		switch decision.Status {
		case datatypes.StatusDecided:
			decided++
		case datatypes.StatusInconclusive:
			inconclusive++
		}
		fmt.Printf("round %2d  status=%-12s confidence=%.2f responded=%d/%d\n",
			i+1, decision.Status, decision.Confidence, decision.Responded, decision.Total)
	}

	dir, current := b.AdaptThreshold()
	score, err := b.PredictTruthScore(ctx, &datatypes.Task{ID: "sim", Signature: "simulated workload"})
	if err != nil {
		return err
	}

	fmt.Printf("\nrounds: %d decided, %d inconclusive\n", decided, inconclusive)
	fmt.Printf("threshold: %.3f (%s)\n", current, dir)
	fmt.Printf("predicted truth score for the simulated workload: %.3f\n", score)
	return nil
}
