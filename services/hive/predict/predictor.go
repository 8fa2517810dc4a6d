// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package predict estimates the expected quality of unseen work from
// stored evidence.
package predict

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
)

// DefaultScore is returned when no evidence matches the task. It signals
// "unknown, assume median confidence" rather than failing.
const DefaultScore = 0.5

// Predictor turns matched evidence into an expected truth score.
//
// # Thread Safety
//
// Safe for concurrent use; all state is read-only after construction.
type Predictor struct {
	store   pattern.Store
	matcher similarity.Matcher
	logger  *slog.Logger
}

// New creates a Predictor over the given store and matcher.
//
// Inputs:
//
//	store - The evidence store. Must not be nil.
//	matcher - The similarity matcher. Must not be nil.
//	logger - Optional logger; slog.Default() when nil.
func New(store pattern.Store, matcher similarity.Matcher, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{store: store, matcher: matcher, logger: logger}
}

// TruthScore predicts the expected quality of the task's result in [0,1].
//
// # Description
//
// Retrieves all evidence matching the task signature and computes the
// confidence-weighted mean of their outcomes:
//
//	sum(outcome_i * confidence_i) / sum(confidence_i)
//
// A missing confidence counts as weight 1 and a missing outcome as 0.5.
// With no matches the prediction is DefaultScore. When every weight is
// exactly zero the unweighted mean of the outcomes is used instead of
// dividing by zero.
//
// # Outputs
//
//	float64 - The predicted score, always in [0,1].
//	error - Non-nil only when the store query fails.
func (p *Predictor) TruthScore(ctx context.Context, task *datatypes.Task) (float64, error) {
	matched, err := p.store.Query(ctx, pattern.BySignature(p.matcher, task.Signature))
	if err != nil {
		return 0, fmt.Errorf("query evidence for task %s: %w", task.ID, err)
	}
	if len(matched) == 0 {
		p.logger.Debug("no matching evidence, using default score",
			"task_id", task.ID, "score", DefaultScore)
		return DefaultScore, nil
	}

	var weightedSum, weightTotal, plainSum float64
	for i := range matched {
		outcome := matched[i].OutcomeOr(DefaultScore)
		weight := matched[i].ConfidenceOr(1)
		weightedSum += outcome * weight
		weightTotal += weight
		plainSum += outcome
	}

	var score float64
	if weightTotal == 0 {
		score = plainSum / float64(len(matched))
	} else {
		score = weightedSum / weightTotal
	}
	score = datatypes.Clamp01(score)

	p.logger.Debug("predicted truth score",
		"task_id", task.ID, "matches", len(matched), "score", score)
	return score, nil
}
