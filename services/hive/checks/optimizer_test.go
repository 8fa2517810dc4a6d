// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
)

func newOptimizer(t *testing.T) (*Optimizer, *pattern.MemStore) {
	t.Helper()
	store := pattern.NewMemStore()
	t.Cleanup(func() { store.Close() })
	return NewOptimizer(store, similarity.NewTokenOverlap(), 0, nil), store
}

func appendWithConfidence(t *testing.T, store pattern.Store, signature string, confidence float64) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), datatypes.Evidence{
		ID:         "e",
		ContextID:  "ctx",
		Signature:  signature,
		Outcome:    datatypes.Float(0.9),
		Confidence: datatypes.Float(confidence),
		Passed:     true,
	}))
}

// TestSkippableChecks verifies the confidence-gated skip set.
func TestSkippableChecks(t *testing.T) {
	ctx := context.Background()
	task := &datatypes.Task{ID: "t1", Signature: "shared sig"}

	t.Run("no evidence means nothing skippable", func(t *testing.T) {
		o, _ := newOptimizer(t)
		skips, err := o.SkippableChecks(ctx, task)
		require.NoError(t, err)
		assert.Empty(t, skips)
	})

	t.Run("low confidence means nothing skippable", func(t *testing.T) {
		o, store := newOptimizer(t)
		appendWithConfidence(t, store, "shared sig", 0.9)
		skips, err := o.SkippableChecks(ctx, task)
		require.NoError(t, err)
		assert.Empty(t, skips)
	})

	t.Run("high confidence unlocks the low-risk set", func(t *testing.T) {
		o, store := newOptimizer(t)
		appendWithConfidence(t, store, "shared sig", 0.96)
		skips, err := o.SkippableChecks(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, []string{"lint_check", "style_check", "format_check"}, skips)
	})

	t.Run("essential checks never skippable", func(t *testing.T) {
		o, store := newOptimizer(t)
		appendWithConfidence(t, store, "shared sig", 0.99)
		skips, err := o.SkippableChecks(ctx, task)
		require.NoError(t, err)
		for _, essential := range []string{"compile_check", "type_check", "test_check"} {
			assert.NotContains(t, skips, essential)
		}
	})

	t.Run("cutoff is exclusive", func(t *testing.T) {
		o, store := newOptimizer(t)
		appendWithConfidence(t, store, "shared sig", DefaultSkipConfidence)
		skips, err := o.SkippableChecks(ctx, task)
		require.NoError(t, err)
		assert.Empty(t, skips, "confidence equal to the cutoff does not unlock skips")
	})
}

// TestPrioritizedChecks verifies failure-frequency ordering and the
// suffix mapping.
func TestPrioritizedChecks(t *testing.T) {
	ctx := context.Background()
	task := &datatypes.Task{ID: "t1", Signature: "shared sig"}

	t.Run("no history returns default order", func(t *testing.T) {
		o, _ := newOptimizer(t)
		order, err := o.PrioritizedChecks(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, []string{"type_check", "syntax_check", "lint_check"}, order)
	})

	t.Run("frequencies sort descending", func(t *testing.T) {
		o, store := newOptimizer(t)
		require.NoError(t, store.Append(ctx, datatypes.Evidence{
			ID: "e1", ContextID: "ctx", Signature: "shared sig",
			Outcome: datatypes.Float(0.5), Confidence: datatypes.Float(0.5),
			Failed: true,
			FailureKinds: []datatypes.FailureStat{
				{Kind: "type_errors", Frequency: 0.8},
				{Kind: "syntax_errors", Frequency: 0.15},
				{Kind: "lint_issues", Frequency: 0.05},
			},
		}))

		order, err := o.PrioritizedChecks(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, []string{"type_check", "syntax_check", "lint_check"}, order)
	})

	t.Run("ties keep encounter order", func(t *testing.T) {
		o, store := newOptimizer(t)
		require.NoError(t, store.Append(ctx, datatypes.Evidence{
			ID: "e1", ContextID: "ctx", Signature: "shared sig",
			Outcome: datatypes.Float(0.5), Confidence: datatypes.Float(0.5),
			Failed: true,
			FailureKinds: []datatypes.FailureStat{
				{Kind: "syntax_errors", Frequency: 0.5},
				{Kind: "type_errors", Frequency: 0.5},
			},
		}))

		order, err := o.PrioritizedChecks(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, []string{"syntax_check", "type_check"}, order)
	})

	t.Run("frequencies merge across records", func(t *testing.T) {
		o, store := newOptimizer(t)
		require.NoError(t, store.Append(ctx, datatypes.Evidence{
			ID: "e1", ContextID: "ctx", Signature: "shared sig",
			Outcome: datatypes.Float(0.5), Confidence: datatypes.Float(0.5),
			Failed: true,
			FailureKinds: []datatypes.FailureStat{
				{Kind: "lint_issues", Frequency: 0.3},
				{Kind: "type_errors", Frequency: 0.2},
			},
		}))
		require.NoError(t, store.Append(ctx, datatypes.Evidence{
			ID: "e2", ContextID: "ctx", Signature: "shared sig",
			Outcome: datatypes.Float(0.5), Confidence: datatypes.Float(0.5),
			Failed: true,
			FailureKinds: []datatypes.FailureStat{
				{Kind: "type_errors", Frequency: 0.4},
			},
		}))

		order, err := o.PrioritizedChecks(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, []string{"type_check", "lint_check"}, order,
			"type_errors totals 0.6 across records")
	})
}

// TestCheckNameForKind verifies the suffix stripping rules.
func TestCheckNameForKind(t *testing.T) {
	cases := map[string]string{
		"type_errors":   "type_check",
		"syntax_errors": "syntax_check",
		"lint_issues":   "lint_check",
		"security":      "security_check",
	}
	for kind, want := range cases {
		assert.Equal(t, want, CheckNameForKind(kind))
	}
}
