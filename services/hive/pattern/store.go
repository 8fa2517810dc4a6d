// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pattern persists and retrieves evidence records.
//
// The pattern store is the engine's durable memory: every completed task
// leaves one Evidence record behind, and the predictor and check optimizer
// read them back to shape future verification. The store is append-only;
// records are never mutated or deleted by the engine. Two implementations
// are provided: MemStore for tests and ephemeral runs, and BadgerStore for
// embedded durable storage.
package pattern

import (
	"context"
	"errors"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
	"github.com/AleutianAI/hivemind/services/hive/similarity"
)

var (
	// ErrClosed is returned when an operation runs against a closed store.
	ErrClosed = errors.New("pattern store is closed")

	// ErrInvalidEvidence is returned when a record violates the score
	// range invariants.
	ErrInvalidEvidence = errors.New("invalid evidence record")
)

// Store is the persistence contract for evidence records.
//
// # Description
//
// Append-only, insertion-ordered. Query and Recent observe a consistent
// snapshot: a concurrent Append is either fully visible or not visible at
// all, never partially written.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds one evidence record. The record is validated before
	// the write; on error nothing is stored.
	Append(ctx context.Context, ev datatypes.Evidence) error

	// Query returns all records matching the predicate, in insertion
	// order.
	Query(ctx context.Context, pred func(*datatypes.Evidence) bool) ([]datatypes.Evidence, error)

	// Recent returns the last n records by insertion order (fewer if the
	// store holds fewer), oldest first.
	Recent(ctx context.Context, n int) ([]datatypes.Evidence, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the store's resources. Operations after Close
	// return ErrClosed.
	Close() error
}

// BySignature builds a predicate that keeps records whose signature the
// matcher considers similar to the query. Records with an empty signature
// are excluded by the matcher contract.
func BySignature(m similarity.Matcher, query string) func(*datatypes.Evidence) bool {
	return func(ev *datatypes.Evidence) bool {
		return m.Match(query, ev.Signature)
	}
}
