// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checks decides which verification checks to run, skip, and
// prioritize, based on stored evidence.
package checks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
)

// DefaultSkipConfidence is the evidence confidence above which low-risk
// checks become skippable.
const DefaultSkipConfidence = 0.95

// DefaultOrder is the check order when no failure history exists.
var DefaultOrder = []string{"type_check", "syntax_check", "lint_check"}

// skippableChecks are low-risk, non-essential checks that may be omitted
// for well-known work. Essential checks (compile, type, tests) are never
// listed here and can never be skipped regardless of confidence.
var skippableChecks = []string{"lint_check", "style_check", "format_check"}

// Optimizer shapes verification from evidence.
//
// # Thread Safety
//
// Safe for concurrent use; all state is read-only after construction.
type Optimizer struct {
	store          pattern.Store
	matcher        similarity.Matcher
	skipConfidence float64
	logger         *slog.Logger
}

// NewOptimizer creates an Optimizer.
//
// Inputs:
//
//	store - The evidence store. Must not be nil.
//	matcher - The similarity matcher. Must not be nil.
//	skipConfidence - Confidence cutoff for skipping; <=0 takes the default.
//	logger - Optional logger; slog.Default() when nil.
func NewOptimizer(store pattern.Store, matcher similarity.Matcher, skipConfidence float64, logger *slog.Logger) *Optimizer {
	if skipConfidence <= 0 {
		skipConfidence = DefaultSkipConfidence
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		store:          store,
		matcher:        matcher,
		skipConfidence: skipConfidence,
		logger:         logger,
	}
}

// SkippableChecks returns the checks that may be omitted for this task.
//
// # Description
//
// When any matched evidence record carries confidence above the cutoff,
// the task's signature is considered well-known and the fixed set of
// low-risk checks is returned. Otherwise the result is empty and the
// verifier runs everything.
//
// # Outputs
//
//	[]string - Check names the external verifier may omit. Never
//	  contains an essential check.
//	error - Non-nil only when the store query fails.
func (o *Optimizer) SkippableChecks(ctx context.Context, task *datatypes.Task) ([]string, error) {
	matched, err := o.store.Query(ctx, pattern.BySignature(o.matcher, task.Signature))
	if err != nil {
		return nil, fmt.Errorf("query evidence for task %s: %w", task.ID, err)
	}

	for i := range matched {
		if matched[i].Confidence != nil && *matched[i].Confidence > o.skipConfidence {
			o.logger.Debug("high-confidence evidence found, low-risk checks skippable",
				"task_id", task.ID, "confidence", *matched[i].Confidence)
			out := make([]string, len(skippableChecks))
			copy(out, skippableChecks)
			return out, nil
		}
	}
	return nil, nil
}

// PrioritizedChecks orders checks by historical failure frequency.
//
// # Description
//
// Merges the failure categories of all matched evidence in encounter
// order, sorts them by descending frequency (stable, so ties keep their
// encounter order), and maps each category to a check name: a trailing
// "_errors" or "_issues" suffix is stripped and "_check" appended. With
// no failure history the fixed default order is returned.
//
// # Outputs
//
//	[]string - Check names, most failure-prone first.
//	error - Non-nil only when the store query fails.
func (o *Optimizer) PrioritizedChecks(ctx context.Context, task *datatypes.Task) ([]string, error) {
	matched, err := o.store.Query(ctx, pattern.BySignature(o.matcher, task.Signature))
	if err != nil {
		return nil, fmt.Errorf("query evidence for task %s: %w", task.ID, err)
	}

	// Merge frequencies keeping first-seen order for stable ties.
	var order []string
	freq := make(map[string]float64)
	for i := range matched {
		for _, fs := range matched[i].FailureKinds {
			if _, seen := freq[fs.Kind]; !seen {
				order = append(order, fs.Kind)
			}
			freq[fs.Kind] += fs.Frequency
		}
	}

	if len(order) == 0 {
		out := make([]string, len(DefaultOrder))
		copy(out, DefaultOrder)
		return out, nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})

	out := make([]string, len(order))
	for i, kind := range order {
		out[i] = CheckNameForKind(kind)
	}
	return out, nil
}

// CheckNameForKind maps a failure category to a check name: the trailing
// "_errors" or "_issues" suffix is stripped and "_check" appended.
func CheckNameForKind(kind string) string {
	base := strings.TrimSuffix(kind, "_errors")
	base = strings.TrimSuffix(base, "_issues")
	return base + "_check"
}
