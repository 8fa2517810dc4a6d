// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AleutianAI/hivemind/services/hive/datatypes"
)

// MemStore is an in-memory Store.
//
// # Description
//
// Backed by a slice guarded by a read-write mutex; insertion order is the
// slice order. Intended for tests and for `hivemind simulate` runs where
// durability is not wanted.
//
// # Thread Safety
//
// Safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	records []datatypes.Evidence
	closed  bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Append adds one record after validation.
func (s *MemStore) Append(ctx context.Context, ev datatypes.Evidence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	s.records = append(s.records, ev)
	return nil
}

// Query returns matching records in insertion order.
func (s *MemStore) Query(ctx context.Context, pred func(*datatypes.Evidence) bool) ([]datatypes.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []datatypes.Evidence
	for i := range s.records {
		if pred == nil || pred(&s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Recent returns the last n records, oldest first.
func (s *MemStore) Recent(ctx context.Context, n int) ([]datatypes.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	start := len(s.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]datatypes.Evidence, len(s.records)-start)
	copy(out, s.records[start:])
	return out, nil
}

// Count returns the number of stored records.
func (s *MemStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.records), nil
}

// Close marks the store closed. Subsequent operations fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemStore)(nil)
