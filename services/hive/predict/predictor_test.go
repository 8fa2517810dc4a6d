// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/pattern"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
)

func newPredictor(t *testing.T) (*Predictor, *pattern.MemStore) {
	t.Helper()
	store := pattern.NewMemStore()
	t.Cleanup(func() { store.Close() })
	return New(store, similarity.NewTokenOverlap(), nil), store
}

func appendEvidence(t *testing.T, store pattern.Store, signature string, outcome, confidence *float64) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), datatypes.Evidence{
		ID:         "e",
		ContextID:  "ctx",
		Signature:  signature,
		Outcome:    outcome,
		Confidence: confidence,
		Passed:     true,
	}))
}

// TestTruthScore_NoEvidence verifies the documented default.
func TestTruthScore_NoEvidence(t *testing.T) {
	p, _ := newPredictor(t)

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "anything"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, score, "no matches returns exactly the default score")
}

// TestTruthScore_WeightedMean verifies the confidence-weighted mean over
// two matched records.
func TestTruthScore_WeightedMean(t *testing.T) {
	p, store := newPredictor(t)

	appendEvidence(t, store, "shared sig", datatypes.Float(0.95), datatypes.Float(0.9))
	appendEvidence(t, store, "shared sig", datatypes.Float(0.92), datatypes.Float(0.85))

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "shared sig"})
	require.NoError(t, err)

	// (0.95*0.9 + 0.92*0.85) / (0.9 + 0.85) = 1.637/1.75
	assert.Greater(t, score, 0.92)
	assert.Less(t, score, 0.96)
	assert.InDelta(t, 0.9354286, score, 1e-4)
}

// TestTruthScore_MissingFieldsDefaulted verifies a missing outcome counts
// as 0.5 and a missing confidence as weight 1.
func TestTruthScore_MissingFieldsDefaulted(t *testing.T) {
	p, store := newPredictor(t)

	appendEvidence(t, store, "sig", nil, nil)

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)

	// A second, fully specified record shifts the weighted mean.
	appendEvidence(t, store, "sig", datatypes.Float(1.0), datatypes.Float(1.0))
	score, err = p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score, 1e-9)
}

// TestTruthScore_AllZeroWeights verifies the unweighted-mean fallback
// instead of a division by zero.
func TestTruthScore_AllZeroWeights(t *testing.T) {
	p, store := newPredictor(t)

	appendEvidence(t, store, "sig", datatypes.Float(0.8), datatypes.Float(0))
	appendEvidence(t, store, "sig", datatypes.Float(0.4), datatypes.Float(0))

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, score, 1e-9, "unweighted mean of 0.8 and 0.4")
}

// TestTruthScore_DuplicatesWeightedEqually verifies append-only semantics
// flow into prediction: two identical records both count.
func TestTruthScore_DuplicatesWeightedEqually(t *testing.T) {
	p, store := newPredictor(t)

	appendEvidence(t, store, "sig", datatypes.Float(1.0), datatypes.Float(1.0))
	appendEvidence(t, store, "sig other", datatypes.Float(0.0), datatypes.Float(1.0))

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)

	// Duplicate the high record; the mean moves toward it.
	appendEvidence(t, store, "sig", datatypes.Float(1.0), datatypes.Float(1.0))
	score, err = p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, score, 1e-9)
}

// TestTruthScore_IgnoresUnrelatedEvidence verifies only matched records
// contribute.
func TestTruthScore_IgnoresUnrelatedEvidence(t *testing.T) {
	p, store := newPredictor(t)

	appendEvidence(t, store, "totally different", datatypes.Float(0.1), datatypes.Float(1.0))
	appendEvidence(t, store, "", datatypes.Float(0.1), datatypes.Float(1.0))

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "mytask signature"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
}

// TestTruthScore_ResultInRange property-checks the [0,1] guarantee.
func TestTruthScore_ResultInRange(t *testing.T) {
	p, store := newPredictor(t)

	outcomes := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, o := range outcomes {
		appendEvidence(t, store, "sig", datatypes.Float(o), datatypes.Float(o))
	}

	score, err := p.TruthScore(context.Background(), &datatypes.Task{ID: "t1", Signature: "sig"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
