// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package threshold

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T, initial float64) *Controller {
	t.Helper()
	v, err := NewValue(initial, DefaultMin, DefaultMax)
	require.NoError(t, err)
	return NewController(v, NewWindow(DefaultWindowSize), DefaultParams(), nil)
}

// TestNewValue verifies bound handling at construction.
func TestNewValue(t *testing.T) {
	t.Run("initial clamped into bounds", func(t *testing.T) {
		v, err := NewValue(1.5, DefaultMin, DefaultMax)
		require.NoError(t, err)
		assert.Equal(t, DefaultMax, v.Load())

		v, err = NewValue(0.1, DefaultMin, DefaultMax)
		require.NoError(t, err)
		assert.Equal(t, DefaultMin, v.Load())
	})

	t.Run("inverted bounds rejected", func(t *testing.T) {
		_, err := NewValue(0.9, 0.97, 0.85)
		assert.Error(t, err)
	})
}

// TestAdapt_EmptyWindowNoOp verifies adaptation without evidence does
// nothing.
func TestAdapt_EmptyWindowNoOp(t *testing.T) {
	c := newController(t, DefaultInitial)

	dir, value := c.Adapt()
	assert.Equal(t, DirectionUnchanged, dir)
	assert.Equal(t, DefaultInitial, value)
}

// TestAdapt_RaisesOnSustainedQuality verifies the upper band: 50 high
// passing scores raise the threshold, clamped at the maximum.
func TestAdapt_RaisesOnSustainedQuality(t *testing.T) {
	c := newController(t, DefaultInitial)

	for i := 0; i < 50; i++ {
		c.Observe(Sample{Score: 0.98, Passed: true})
	}

	dir, value := c.Adapt()
	assert.Equal(t, DirectionRaised, dir)
	assert.Greater(t, value, DefaultInitial)
	assert.LessOrEqual(t, value, DefaultMax)

	t.Run("never exceeds max", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			c.Adapt()
		}
		assert.Equal(t, DefaultMax, c.Current())
	})
}

// TestAdapt_LowersOnDegradedQuality verifies the lower band: failing
// scores below the current threshold lower it, clamped at the minimum.
func TestAdapt_LowersOnDegradedQuality(t *testing.T) {
	c := newController(t, DefaultInitial)

	for i := 0; i < 30; i++ {
		c.Observe(Sample{Score: 0.93, Passed: false})
	}

	dir, value := c.Adapt()
	assert.Equal(t, DirectionLowered, dir)
	assert.Less(t, value, 0.95)
	assert.GreaterOrEqual(t, value, DefaultMin)

	t.Run("never drops below min", func(t *testing.T) {
		// Scores below the floor drive the threshold all the way down;
		// the clamp stops it at the minimum.
		for i := 0; i < DefaultWindowSize; i++ {
			c.Observe(Sample{Score: 0.2, Passed: false})
		}
		for i := 0; i < 20; i++ {
			c.Adapt()
		}
		assert.Equal(t, DefaultMin, c.Current())
	})

	t.Run("lowering self-limits at the window average", func(t *testing.T) {
		c := newController(t, DefaultInitial)
		for i := 0; i < 30; i++ {
			c.Observe(Sample{Score: 0.93, Passed: false})
		}
		for i := 0; i < 20; i++ {
			c.Adapt()
		}
		// Once the threshold falls to the average score the lower band
		// no longer holds, so it settles above the floor.
		assert.InDelta(t, 0.91, c.Current(), 1e-9)
	})
}

// TestAdapt_RaiseTakesPriority verifies only one adjustment applies and
// the raise band is checked first.
func TestAdapt_RaiseTakesPriority(t *testing.T) {
	c := newController(t, DefaultInitial)

	for i := 0; i < 50; i++ {
		c.Observe(Sample{Score: 0.99, Passed: true})
	}

	before := c.Current()
	dir, after := c.Adapt()
	assert.Equal(t, DirectionRaised, dir)
	assert.InDelta(t, before+DefaultRaiseStep, after, 1e-9, "exactly one raise step")
}

// TestAdapt_MiddleGroundUnchanged verifies the hysteresis gap between the
// bands leaves the threshold alone.
func TestAdapt_MiddleGroundUnchanged(t *testing.T) {
	c := newController(t, DefaultInitial)

	// 70% pass rate, middling scores: neither band holds.
	for i := 0; i < 10; i++ {
		c.Observe(Sample{Score: 0.9, Passed: i < 7})
	}

	dir, value := c.Adapt()
	assert.Equal(t, DirectionUnchanged, dir)
	assert.Equal(t, DefaultInitial, value)
}

// TestAdapt_WindowEviction verifies only the last W samples count.
func TestAdapt_WindowEviction(t *testing.T) {
	v, err := NewValue(DefaultInitial, DefaultMin, DefaultMax)
	require.NoError(t, err)
	w := NewWindow(5)
	c := NewController(v, w, DefaultParams(), nil)

	// Old bad samples, then a full window of good ones.
	for i := 0; i < 5; i++ {
		c.Observe(Sample{Score: 0.1, Passed: false})
	}
	for i := 0; i < 5; i++ {
		c.Observe(Sample{Score: 0.99, Passed: true})
	}

	dir, _ := c.Adapt()
	assert.Equal(t, DirectionRaised, dir, "evicted samples no longer drag the window down")
	assert.Equal(t, 5, w.Len())
}

// TestAdapt_BoundsInvariant property-checks that the threshold stays in
// bounds after any mix of adaptation calls.
func TestAdapt_BoundsInvariant(t *testing.T) {
	c := newController(t, DefaultInitial)

	push := func(score float64, passed bool, n int) {
		for i := 0; i < n; i++ {
			c.Observe(Sample{Score: score, Passed: passed})
		}
	}

	for round := 0; round < 10; round++ {
		push(0.99, true, 50)
		c.Adapt()
		push(0.2, false, 50)
		c.Adapt()

		v := c.Current()
		assert.GreaterOrEqual(t, v, DefaultMin)
		assert.LessOrEqual(t, v, DefaultMax)
	}
}

// TestAdapt_ConcurrentObserve verifies adaptation is safe under
// concurrent evidence ingestion.
func TestAdapt_ConcurrentObserve(t *testing.T) {
	c := newController(t, DefaultInitial)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Observe(Sample{Score: 0.98, Passed: true})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Adapt()
		}
	}()
	wg.Wait()

	v := c.Current()
	assert.GreaterOrEqual(t, v, DefaultMin)
	assert.LessOrEqual(t, v, DefaultMax)
}

// TestWindow_Snapshot verifies ordering and wrap-around.
func TestWindow_Snapshot(t *testing.T) {
	w := NewWindow(3)
	w.Push(Sample{Score: 0.1})
	w.Push(Sample{Score: 0.2})

	snap := w.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 0.1, snap[0].Score)
	assert.Equal(t, 0.2, snap[1].Score)

	w.Push(Sample{Score: 0.3})
	w.Push(Sample{Score: 0.4}) // evicts 0.1

	snap = w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, 0.2, snap[0].Score)
	assert.Equal(t, 0.4, snap[2].Score)
}
