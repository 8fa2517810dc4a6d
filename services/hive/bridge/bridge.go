// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridge is the learning orchestrator: it owns the sole write
// path into the evidence store and wires prediction, threshold
// adaptation, and check optimization into one surface.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AleutianAI/hivemind/services/hive/checks"
	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/observability"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/predict"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
	"github.com/AleutianAI/hivemind/services/hive/threshold"
)

// Bridge ties the learning components together.
//
// # Description
//
// Every completed task, whether solo-executed or consensus-derived, must
// flow through LearnFromOutcome — it is the only code path that appends
// Evidence. The bridge also implements the consensus engine's Recorder
// so decided rounds feed straight back into learning.
//
// # Thread Safety
//
// Safe for concurrent use; the store, window, and threshold each carry
// their own synchronization.
type Bridge struct {
	store      pattern.Store
	predictor  *predict.Predictor
	controller *threshold.Controller
	optimizer  *checks.Optimizer
	logger     *slog.Logger
	metrics    *observability.Metrics

	matcher        similarity.Matcher
	skipConfidence float64
}

// Option is a functional option for configuring a Bridge.
type Option func(*Bridge)

// WithMetrics enables Prometheus metrics for learning operations.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithLogger sets the bridge logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithMatcher substitutes the evidence matcher used for prediction and
// check optimization. Default: token-overlap.
func WithMatcher(m similarity.Matcher) Option {
	return func(b *Bridge) {
		b.matcher = m
	}
}

// WithSkipConfidence overrides the check-skip confidence cutoff.
func WithSkipConfidence(cutoff float64) Option {
	return func(b *Bridge) {
		b.skipConfidence = cutoff
	}
}

// New creates a Bridge over the given store and threshold controller.
//
// Inputs:
//
//	store - The evidence store. Must not be nil.
//	controller - The shared threshold controller. Must not be nil.
//	opts - Optional configuration.
func New(store pattern.Store, controller *threshold.Controller, opts ...Option) *Bridge {
	b := &Bridge{
		store:      store,
		controller: controller,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.matcher == nil {
		b.matcher = similarity.NewTokenOverlap()
	}
	b.predictor = predict.New(store, b.matcher, b.logger)
	b.optimizer = checks.NewOptimizer(store, b.matcher, b.skipConfidence, b.logger)
	return b
}

// LearnFromOutcome records a completed task's verification outcome.
//
// # Description
//
// Builds an Evidence record from the task and outcome and appends it to
// the pattern store. Appends are not deduplicated: learning the same
// outcome twice yields two records that weigh equally in prediction.
// Only after a successful append does the outcome enter the adaptation
// window — a store failure leaves every piece of in-memory state
// untouched.
//
// # Outputs
//
//	error - Non-nil when validation or the store append fails.
func (b *Bridge) LearnFromOutcome(ctx context.Context, task *datatypes.Task, outcome *datatypes.VerificationOutcome) error {
	ev := datatypes.Evidence{
		ID:           uuid.NewString(),
		ContextID:    "task:" + task.ID,
		Signature:    task.Signature,
		Outcome:      datatypes.Float(outcome.TruthScore),
		Confidence:   datatypes.Float(outcome.TruthScore),
		Passed:       outcome.Passed,
		Failed:       !outcome.Passed,
		FailureKinds: outcome.FailureKinds,
	}
	if err := b.store.Append(ctx, ev); err != nil {
		return fmt.Errorf("learn from outcome for task %s: %w", task.ID, err)
	}

	b.controller.Observe(threshold.Sample{Score: outcome.TruthScore, Passed: outcome.Passed})
	if b.metrics != nil {
		result := "failed"
		if outcome.Passed {
			result = "passed"
		}
		b.metrics.EvidenceTotal.WithLabelValues(result).Inc()
	}
	b.logger.Debug("evidence recorded",
		"task_id", task.ID, "score", outcome.TruthScore, "passed", outcome.Passed)
	return nil
}

// PredictTruthScore estimates the expected quality of the task's result.
func (b *Bridge) PredictTruthScore(ctx context.Context, task *datatypes.Task) (float64, error) {
	score, err := b.predictor.TruthScore(ctx, task)
	if err != nil {
		return 0, err
	}
	if b.metrics != nil {
		b.metrics.PredictionsTotal.Inc()
		b.metrics.PredictionScore.Observe(score)
	}
	return score, nil
}

// AdaptThreshold re-evaluates the acceptance threshold against the
// recent evidence window and returns the direction taken and the
// threshold after the call.
func (b *Bridge) AdaptThreshold() (threshold.Direction, float64) {
	dir, value := b.controller.Adapt()
	if b.metrics != nil {
		b.metrics.ThresholdValue.Set(value)
		b.metrics.ThresholdAdjustmentsTotal.WithLabelValues(string(dir)).Inc()
	}
	return dir, value
}

// Threshold returns the current acceptance threshold without adapting it.
func (b *Bridge) Threshold() float64 {
	return b.controller.Current()
}

// OptimizeVerification returns the checks that may be skipped for this
// task based on high-confidence evidence.
func (b *Bridge) OptimizeVerification(ctx context.Context, task *datatypes.Task) ([]string, error) {
	return b.optimizer.SkippableChecks(ctx, task)
}

// PrioritizedChecks returns check names ordered by historical failure
// frequency, most failure-prone first.
func (b *Bridge) PrioritizedChecks(ctx context.Context, task *datatypes.Task) ([]string, error) {
	return b.optimizer.PrioritizedChecks(ctx, task)
}

// RecordDecision records a decided consensus round as learning evidence.
//
// Implements the consensus engine's Recorder. Inconclusive decisions
// never reach this method; the engine surfaces them without recording.
func (b *Bridge) RecordDecision(ctx context.Context, task *datatypes.Task, decision *datatypes.ConsensusDecision) error {
	outcome := &datatypes.VerificationOutcome{
		TruthScore: decision.Confidence,
		Passed:     decision.Status == datatypes.StatusDecided,
	}
	return b.LearnFromOutcome(ctx, task, outcome)
}
