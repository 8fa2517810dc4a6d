// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package threshold owns the adaptive pass/fail cutoff.
//
// The threshold is a single process-wide scalar bounded to a closed
// interval. It is held in an explicitly synchronized Value object that is
// dependency-injected into every component that reads or adjusts it; there
// is no ambient global. Only the Controller in this package mutates it,
// and only through bounded incremental steps.
package threshold

import (
	"fmt"
	"sync"
)

// Default tuning values.
const (
	// DefaultInitial is the starting threshold at engine start.
	DefaultInitial = 0.95

	// DefaultMin and DefaultMax bound the threshold for the process
	// lifetime.
	DefaultMin = 0.85
	DefaultMax = 0.97

	// DefaultRaiseStep is deliberately smaller than DefaultLowerStep:
	// the system is conservative about tightening acceptance and
	// responsive about loosening when quality degrades.
	DefaultRaiseStep = 0.01
	DefaultLowerStep = 0.02

	// DefaultWindowSize is the number of recent evidence samples the
	// controller inspects.
	DefaultWindowSize = 50

	// Raise band: pass rate above DefaultRaisePassRate AND average score
	// above DefaultRaiseScore.
	DefaultRaisePassRate = 0.9
	DefaultRaiseScore    = 0.96

	// Lower band: pass rate below DefaultLowerPassRate AND average score
	// below the current threshold.
	DefaultLowerPassRate = 0.5
)

// Value is the shared, synchronized threshold scalar.
//
// # Description
//
// Readers call Load; the Controller performs the only writes via the
// unexported adjust method, so the bounds invariant cannot be violated
// from outside this package.
//
// # Thread Safety
//
// Safe for concurrent use. Load and adjust are individually atomic, and
// the Controller performs its read-modify-write under the same lock.
type Value struct {
	mu       sync.Mutex
	current  float64
	min, max float64
}

// NewValue creates a threshold value clamped into [min,max].
//
// Inputs:
//
//	initial - Starting threshold; clamped into bounds.
//	min, max - The closed interval the value can never leave.
//
// Outputs:
//
//	*Value - The shared value object.
//	error - Non-nil when min > max.
func NewValue(initial, min, max float64) (*Value, error) {
	if min > max {
		return nil, fmt.Errorf("threshold bounds inverted: min %v > max %v", min, max)
	}
	v := &Value{current: clamp(initial, min, max), min: min, max: max}
	return v, nil
}

// Load returns the current threshold.
func (v *Value) Load() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Bounds returns the configured [min,max] interval.
func (v *Value) Bounds() (min, max float64) {
	return v.min, v.max
}

// adjust applies delta and clamps into bounds, returning the new value.
// Only the Controller calls this.
func (v *Value) adjust(delta float64) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = clamp(v.current+delta, v.min, v.max)
	return v.current
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
