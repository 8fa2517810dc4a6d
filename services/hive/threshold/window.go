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

import "sync"

// Sample is one evidence observation the controller windows over.
type Sample struct {
	// Score is the recorded truth score in [0,1].
	Score float64

	// Passed reports whether the originating execution passed.
	Passed bool
}

// Window is a fixed-capacity ring of the most recent samples, in
// insertion order.
//
// # Description
//
// The learning bridge pushes one Sample per successfully appended
// evidence record, so the window mirrors the store's "last W records"
// without rescanning it. When full, the oldest sample is overwritten.
//
// # Thread Safety
//
// Safe for concurrent use. Snapshot returns a consistent copy: a
// concurrent Push is either fully included or not included at all.
type Window struct {
	mu    sync.Mutex
	data  []Sample
	head  int // next write position
	count int
}

// NewWindow creates a window holding up to capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{data: make([]Sample, capacity)}
}

// Push records one sample, evicting the oldest when full.
func (w *Window) Push(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data[w.head] = s
	w.head = (w.head + 1) % len(w.data)
	if w.count < len(w.data) {
		w.count++
	}
}

// Snapshot returns the windowed samples oldest-first.
func (w *Window) Snapshot() []Sample {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Sample, w.count)
	if w.count < len(w.data) {
		copy(out, w.data[:w.count])
		return out
	}
	// Wrapped: oldest sample sits at head.
	n := copy(out, w.data[w.head:])
	copy(out[n:], w.data[:w.head])
	return out
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the window capacity W.
func (w *Window) Cap() int {
	return len(w.data)
}
