// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package consensus runs the same task across independent workers and
// reduces their results to one agreed decision.
//
// A round moves through dispatched → collecting → reducing and terminates
// decided or inconclusive. Collection is a fan-out/fan-in barrier bounded
// by a deadline: workers that miss it are simply absent from the
// collected set, never counted as disagreement.
package consensus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/observability"
)

// Default configuration values.
const (
	// DefaultQuorum is the minimum agreement fraction for a decision
	// to be trusted (two-thirds).
	DefaultQuorum = 0.67

	// DefaultDeadline bounds the collection phase.
	DefaultDeadline = 30 * time.Second

	// DefaultMaxParallel bounds concurrently executing workers.
	DefaultMaxParallel = 8
)

// Executor runs one worker's execution of a task.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use: the engine invokes
// Execute from one goroutine per worker.
type Executor interface {
	// Execute performs the task and returns the worker's result. A nil
	// result, an error, or a result with Success=false all exclude the
	// worker from the collected set without aborting the round.
	// Implementations must honor ctx cancellation.
	Execute(ctx context.Context, task *datatypes.Task, workerID string) (*datatypes.WorkerResult, error)
}

// Recorder receives decided consensus outcomes as learning evidence.
// Implemented by the learning bridge. Inconclusive decisions are never
// passed to it.
type Recorder interface {
	RecordDecision(ctx context.Context, task *datatypes.Task, decision *datatypes.ConsensusDecision) error
}

// Config tunes a consensus Engine. Zero fields take package defaults.
type Config struct {
	// Quorum is the minimum agreement fraction in (0,1].
	Quorum float64

	// Deadline bounds the collection phase.
	Deadline time.Duration

	// MaxParallel bounds concurrently executing workers.
	MaxParallel int64
}

func (c Config) withDefaults() Config {
	if c.Quorum <= 0 {
		c.Quorum = DefaultQuorum
	}
	if c.Deadline <= 0 {
		c.Deadline = DefaultDeadline
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = DefaultMaxParallel
	}
	return c
}

// Engine fans a task out to N workers and reduces their results.
//
// # Thread Safety
//
// Safe for concurrent use; independent rounds do not block each other
// beyond the shared MaxParallel worker budget.
type Engine struct {
	executor Executor
	recorder Recorder
	cfg      Config
	sem      *semaphore.Weighted
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.Metrics
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithRecorder sets the recorder that receives decided outcomes.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithMetrics enables Prometheus metrics for rounds and workers.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a consensus Engine.
//
// Inputs:
//
//	executor - Runs individual workers. Must not be nil.
//	cfg - Round tuning; zero fields take defaults.
//	opts - Optional configuration.
func NewEngine(executor Executor, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		executor: executor,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxParallel),
		logger:   slog.Default(),
		tracer:   otel.Tracer("hivemind/consensus"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildConsensus runs one consensus round.
//
// # Description
//
// Spawns workerCount workers on the identical task, collects the results
// that arrive before the deadline into a fixed slot array indexed by
// worker (deterministic reduction under partial completion), groups them
// by produced value, and picks the largest group. Confidence is the
// fraction of responders in that group. At or above the quorum the
// decision is Decided and handed to the recorder as new evidence; below
// it the decision is Inconclusive and NOT recorded — storing it would
// poison the pattern store with low-confidence noise.
//
// # Edge cases
//
// Zero responding workers yields Inconclusive with confidence 0 and no
// error. A single responding worker yields confidence 1.0, Decided.
//
// # Outputs
//
//	*datatypes.ConsensusDecision - Always non-nil on a run that started.
//	error - Non-nil when workerCount is invalid or recording a decided
//	  outcome failed; the decision is still returned alongside a
//	  recording error.
func (e *Engine) BuildConsensus(ctx context.Context, task *datatypes.Task, workerCount int) (*datatypes.ConsensusDecision, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workerCount)
	}

	roundID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "consensus.round",
		trace.WithAttributes(
			attribute.String("round.id", roundID),
			attribute.String("task.id", task.ID),
			attribute.Int("round.workers", workerCount),
		))
	defer span.End()

	start := time.Now()
	e.logger.Debug("consensus round dispatched",
		"round_id", roundID, "task_id", task.ID, "workers", workerCount)

	// Collecting: fan out into a fixed slot array. Each worker owns one
	// slot; the mutex makes the snapshot after the barrier consistent.
	slots := make([]*datatypes.WorkerResult, workerCount)
	var slotMu sync.Mutex

	collectCtx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			workerID := fmt.Sprintf("worker-%d", slot)

			if err := e.sem.Acquire(collectCtx, 1); err != nil {
				// Deadline hit before the worker could start.
				return
			}
			defer e.sem.Release(1)

			result, err := e.executor.Execute(collectCtx, task, workerID)
			if err != nil || result == nil || !result.Success {
				if e.metrics != nil {
					e.metrics.WorkerFailuresTotal.Inc()
				}
				e.logger.Debug("worker excluded from consensus",
					"round_id", roundID, "worker_id", workerID, "error", err)
				return
			}

			slotMu.Lock()
			slots[slot] = result
			slotMu.Unlock()
		}(i)
	}

	// Barrier: all workers done, or deadline expired. A deadline stops
	// the wait but keeps whatever already landed in the slots.
	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()
	select {
	case <-allDone:
	case <-collectCtx.Done():
		e.logger.Debug("consensus deadline expired, reducing partial results",
			"round_id", roundID)
	}

	// Reducing: snapshot the slots and group by value in slot order.
	slotMu.Lock()
	collected := make([]*datatypes.WorkerResult, 0, workerCount)
	for _, r := range slots {
		if r != nil {
			collected = append(collected, r)
		}
	}
	slotMu.Unlock()

	decision := e.reduce(roundID, task, collected, workerCount)
	decision.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("round.status", string(decision.Status)),
		attribute.Float64("round.confidence", decision.Confidence),
		attribute.Int("round.responded", decision.Responded),
	)
	if e.metrics != nil {
		e.metrics.RoundsTotal.WithLabelValues(string(decision.Status)).Inc()
		e.metrics.RoundDurationSeconds.WithLabelValues(string(decision.Status)).
			Observe(decision.Duration.Seconds())
		e.metrics.WorkersResponded.Observe(float64(decision.Responded))
	}
	e.logger.Info("consensus round finished",
		"round_id", roundID, "task_id", task.ID,
		"status", decision.Status, "confidence", decision.Confidence,
		"responded", decision.Responded, "total", decision.Total)

	if decision.Status == datatypes.StatusDecided && e.recorder != nil {
		// Recording uses the parent ctx: the collection deadline must
		// not clip the evidence write.
		if err := e.recorder.RecordDecision(ctx, task, decision); err != nil {
			return decision, fmt.Errorf("record consensus decision %s: %w", roundID, err)
		}
	}
	return decision, nil
}

// reduce groups collected results by value and derives the decision.
func (e *Engine) reduce(roundID string, task *datatypes.Task, collected []*datatypes.WorkerResult, total int) *datatypes.ConsensusDecision {
	decision := &datatypes.ConsensusDecision{
		RoundID: roundID,
		TaskID:  task.ID,
		Total:   total,
		Status:  datatypes.StatusInconclusive,
	}
	if len(collected) == 0 {
		// No responders: confidence undefined, reported as 0.
		return decision
	}

	// Group sizes keyed by value; first-encounter order breaks ties so
	// reduction stays deterministic.
	counts := make(map[string]int)
	var order []string
	for _, r := range collected {
		if _, seen := counts[r.Value]; !seen {
			order = append(order, r.Value)
		}
		counts[r.Value]++
	}

	winner := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[winner] {
			winner = v
		}
	}

	decision.Value = winner
	decision.Agreeing = counts[winner]
	decision.Responded = len(collected)
	decision.Confidence = float64(decision.Agreeing) / float64(decision.Responded)
	if decision.Confidence >= e.cfg.Quorum {
		decision.Status = datatypes.StatusDecided
	}
	return decision
}
