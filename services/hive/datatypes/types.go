// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the hive engine.
//
// The types here flow between the pattern store, the predictor, the
// threshold controller, and the consensus engine. They are deliberately
// free of behavior beyond construction and validation so every package
// can depend on them without cycles.
package datatypes

import (
	"fmt"
	"time"
)

// Task is one unit of work handed to the engine.
//
// # Description
//
// A Task carries an identifier, an opaque content signature (typically the
// code or prompt the workers operate on), and optional goal metadata.
// Tasks are immutable once created; the engine never writes to them.
type Task struct {
	// ID uniquely identifies the task.
	ID string `json:"id"`

	// Signature is the opaque content the similarity matcher scores
	// against stored evidence. Usually source text or a token sequence.
	Signature string `json:"signature"`

	// Metadata holds optional structured goal/requirement context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// FailureStat is one failure category with its observed frequency.
//
// Kept as an ordered slice element (not a map entry) so that encounter
// order is preserved for stable tie-breaking in check prioritization.
type FailureStat struct {
	// Kind is the failure category, e.g. "type_errors" or "lint_issues".
	Kind string `json:"kind"`

	// Frequency is the relative frequency of this category in [0,1].
	Frequency float64 `json:"frequency"`
}

// VerificationOutcome is the verifier's judgment of one task execution.
//
// # Description
//
// Produced once per execution by an external verifier. The engine only
// reads the truth score and the pass flag; how the score was computed is
// the verifier's business.
type VerificationOutcome struct {
	// TruthScore is the quality score in [0,1].
	TruthScore float64 `json:"truth_score"`

	// Passed reports whether the result cleared the acceptance threshold.
	Passed bool `json:"passed"`

	// FailureKinds optionally describes which categories of checks
	// failed, in the order the verifier encountered them.
	FailureKinds []FailureStat `json:"failure_kinds,omitempty"`
}

// Evidence is one recorded (signature, outcome, confidence) observation.
//
// # Description
//
// Evidence records are append-only: written once by the learning bridge
// and read many times by the predictor and the check optimizer. They are
// never mutated or deleted; corrections happen by appending new evidence.
//
// Outcome and Confidence are pointers so that "missing" is distinct from
// an explicit zero. The predictor substitutes 0.5 for a missing outcome
// and weight 1 for a missing confidence; an explicit zero confidence
// stays zero.
type Evidence struct {
	// ID uniquely identifies this record.
	ID string `json:"id"`

	// ContextID names the task context the evidence came from.
	ContextID string `json:"context_id"`

	// Signature is the content signature the record was learned from.
	Signature string `json:"signature"`

	// Outcome is the recorded truth score in [0,1]. Nil means unknown.
	Outcome *float64 `json:"outcome,omitempty"`

	// Confidence is the weight of this record in [0,1]. Nil means unknown.
	Confidence *float64 `json:"confidence,omitempty"`

	// Passed reports whether the originating execution passed.
	Passed bool `json:"passed"`

	// Failed is the inverse flag, kept explicit for store queries.
	Failed bool `json:"failed"`

	// FailureKinds carries the verifier's failure categories, in
	// encounter order.
	FailureKinds []FailureStat `json:"failure_kinds,omitempty"`

	// CreatedAt is the wall-clock append time.
	CreatedAt time.Time `json:"created_at"`
}

// OutcomeOr returns the outcome score, or def when unset.
func (e *Evidence) OutcomeOr(def float64) float64 {
	if e.Outcome == nil {
		return def
	}
	return *e.Outcome
}

// ConfidenceOr returns the confidence, or def when unset.
func (e *Evidence) ConfidenceOr(def float64) float64 {
	if e.Confidence == nil {
		return def
	}
	return *e.Confidence
}

// Validate checks the score-range invariants.
//
// Outputs:
//   - error: Non-nil if outcome or confidence is outside [0,1].
func (e *Evidence) Validate() error {
	if e.Outcome != nil && (*e.Outcome < 0 || *e.Outcome > 1) {
		return fmt.Errorf("evidence %s: outcome %v outside [0,1]", e.ID, *e.Outcome)
	}
	if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
		return fmt.Errorf("evidence %s: confidence %v outside [0,1]", e.ID, *e.Confidence)
	}
	return nil
}

// WorkerResult is one worker's answer for one consensus round.
//
// Ephemeral: scoped to the round that spawned the worker and discarded
// after reduction.
type WorkerResult struct {
	// WorkerID identifies the worker within the round (slot index or
	// an external agent ID).
	WorkerID string `json:"worker_id"`

	// TaskID is the task the worker executed.
	TaskID string `json:"task_id"`

	// Value is the produced pattern/answer the round reduces over.
	Value string `json:"value"`

	// Score is the worker's self-reported quality in [0,1], if any.
	Score float64 `json:"score"`

	// Success reports whether the worker completed its execution.
	Success bool `json:"success"`
}

// ConsensusStatus is the terminal state of a consensus round.
type ConsensusStatus string

const (
	// StatusDecided means the quorum was reached and the decision is
	// trusted (and recorded as evidence).
	StatusDecided ConsensusStatus = "decided"

	// StatusInconclusive means the quorum was not reached. The decision
	// is surfaced to the caller but never recorded as evidence.
	StatusInconclusive ConsensusStatus = "inconclusive"
)

// ConsensusDecision is the reduced result of one consensus round.
//
// # Description
//
// Confidence equals |largest agreeing group| / |workers that responded|.
// Workers that failed or timed out are absent from both numerator and
// denominator; they are not counted as disagreement.
type ConsensusDecision struct {
	// RoundID identifies the consensus round that produced this decision.
	RoundID string `json:"round_id"`

	// TaskID is the task the round was run for.
	TaskID string `json:"task_id"`

	// Value is the agreed pattern (majority value among responders).
	Value string `json:"value"`

	// Confidence is the agreement fraction in [0,1]. Zero when no worker
	// responded.
	Confidence float64 `json:"confidence"`

	// Agreeing is the size of the winning group.
	Agreeing int `json:"agreeing"`

	// Responded is the number of workers that returned a result.
	Responded int `json:"responded"`

	// Total is the number of workers spawned.
	Total int `json:"total"`

	// Status is Decided or Inconclusive.
	Status ConsensusStatus `json:"status"`

	// Duration is the wall-clock time of the round.
	Duration time.Duration `json:"duration"`
}

// Clamp01 clamps v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Float returns a pointer to v. Convenience for building Evidence records
// and test fixtures.
func Float(v float64) *float64 {
	return &v
}
