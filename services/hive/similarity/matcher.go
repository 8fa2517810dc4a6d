// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package similarity scores a query signature against stored evidence.
//
// The package exposes a pluggable Matcher contract so the deliberately
// cheap token-overlap baseline can be swapped for an embedding-based
// scorer without touching callers (the predictor and the check optimizer
// only know the interface).
package similarity

import "strings"

// Matcher decides whether a stored signature is relevant to a query.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; a single Matcher is
// shared by the predictor, the optimizer, and the HTTP handlers.
type Matcher interface {
	// Match reports whether stored is similar enough to query to count
	// as supporting evidence.
	//
	// An empty or missing stored signature must never match anything;
	// it is excluded up front, not scored as zero overlap.
	Match(query, stored string) bool

	// Score returns a graded similarity in [0,1]. Match is equivalent
	// to Score > 0 for the baseline implementation, but embedding-based
	// matchers may apply their own cutoff.
	Score(query, stored string) float64
}

// TokenOverlap is the baseline Matcher: case-insensitive whitespace
// tokenization, match on any shared token.
//
// # Description
//
// Both signatures are split on whitespace and lowercased. A match occurs
// when the token sets intersect in at least one element. Score is the
// Jaccard index of the two token sets, which gives downstream callers a
// graded signal without changing the match semantics.
//
// # Thread Safety
//
// TokenOverlap is stateless and safe for concurrent use.
type TokenOverlap struct{}

// NewTokenOverlap returns the baseline token-overlap matcher.
func NewTokenOverlap() *TokenOverlap {
	return &TokenOverlap{}
}

// Match reports whether the two signatures share at least one token.
//
// Inputs:
//
//	query - The task's content signature.
//	stored - The evidence record's signature. Empty never matches.
//
// Outputs:
//
//	bool - True when the lowercased token sets intersect.
func (m *TokenOverlap) Match(query, stored string) bool {
	if strings.TrimSpace(stored) == "" {
		return false
	}
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return false
	}
	for _, tok := range strings.Fields(strings.ToLower(stored)) {
		if queryTokens[tok] {
			return true
		}
	}
	return false
}

// Score returns the Jaccard index of the two token sets.
//
// Returns 0 when either signature is empty.
func (m *TokenOverlap) Score(query, stored string) float64 {
	if strings.TrimSpace(stored) == "" {
		return 0
	}
	queryTokens := tokenSet(query)
	storedTokens := tokenSet(stored)
	if len(queryTokens) == 0 || len(storedTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range storedTokens {
		if queryTokens[tok] {
			intersection++
		}
	}
	union := len(queryTokens) + len(storedTokens) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// tokenSet lowercases and splits a signature into its token set.
func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

var _ Matcher = (*TokenOverlap)(nil)
