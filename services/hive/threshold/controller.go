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

import "log/slog"

// Direction reports what an Adapt call did to the threshold.
type Direction string

const (
	// DirectionRaised means the threshold moved up by the raise step.
	DirectionRaised Direction = "raised"

	// DirectionLowered means the threshold moved down by the lower step.
	DirectionLowered Direction = "lowered"

	// DirectionUnchanged means neither band condition held (or the
	// window was empty).
	DirectionUnchanged Direction = "unchanged"
)

// Params tunes the controller's bands and steps.
//
// All fields are constructor-time configuration; zero values are replaced
// by the package defaults.
type Params struct {
	// RaiseStep is added when the raise band holds.
	RaiseStep float64

	// LowerStep is subtracted when the lower band holds.
	LowerStep float64

	// RaisePassRate and RaiseScore define the upper band:
	// passRate > RaisePassRate AND avgScore > RaiseScore.
	RaisePassRate float64
	RaiseScore    float64

	// LowerPassRate defines the lower band together with the current
	// threshold: passRate < LowerPassRate AND avgScore < current.
	LowerPassRate float64
}

// DefaultParams returns the default hysteresis tuning.
//
// The asymmetric bands and step sizes prevent oscillation: acceptance
// criteria do not become harder to satisfy from noise alone.
func DefaultParams() Params {
	return Params{
		RaiseStep:     DefaultRaiseStep,
		LowerStep:     DefaultLowerStep,
		RaisePassRate: DefaultRaisePassRate,
		RaiseScore:    DefaultRaiseScore,
		LowerPassRate: DefaultLowerPassRate,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.RaiseStep == 0 {
		p.RaiseStep = d.RaiseStep
	}
	if p.LowerStep == 0 {
		p.LowerStep = d.LowerStep
	}
	if p.RaisePassRate == 0 {
		p.RaisePassRate = d.RaisePassRate
	}
	if p.RaiseScore == 0 {
		p.RaiseScore = d.RaiseScore
	}
	if p.LowerPassRate == 0 {
		p.LowerPassRate = d.LowerPassRate
	}
	return p
}

// Controller adapts the shared threshold from a rolling evidence window.
//
// # Thread Safety
//
// Safe for concurrent use. Observe may run concurrently with Adapt; each
// Adapt call works on one consistent window snapshot.
type Controller struct {
	value  *Value
	window *Window
	params Params
	logger *slog.Logger
}

// NewController wires a controller to the shared value and its window.
//
// Inputs:
//
//	value - The shared threshold value object. Must not be nil.
//	window - The evidence sample window. Must not be nil.
//	params - Band/step tuning; zero fields take package defaults.
//	logger - Optional logger; slog.Default() when nil.
func NewController(value *Value, window *Window, params Params, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		value:  value,
		window: window,
		params: params.withDefaults(),
		logger: logger,
	}
}

// Observe records one evidence sample into the window.
//
// Called by the learning bridge after every successful evidence append,
// never before: a failed append must leave the window untouched.
func (c *Controller) Observe(s Sample) {
	c.window.Push(s)
}

// Adapt re-evaluates the threshold against the recent window.
//
// # Description
//
// Computes the average score and pass rate over the last W samples, then
// applies exactly one of, in priority order:
//
//  1. raise by RaiseStep (clamped at max) when passRate > RaisePassRate
//     and avgScore > RaiseScore;
//  2. lower by LowerStep (clamped at min) when passRate < LowerPassRate
//     and avgScore < the current threshold;
//  3. no change.
//
// An empty window is a no-op.
//
// # Outputs
//
//	Direction - What happened.
//	float64 - The threshold after the call.
func (c *Controller) Adapt() (Direction, float64) {
	samples := c.window.Snapshot()
	if len(samples) == 0 {
		return DirectionUnchanged, c.value.Load()
	}

	var scoreSum float64
	passed := 0
	for _, s := range samples {
		scoreSum += s.Score
		if s.Passed {
			passed++
		}
	}
	avgScore := scoreSum / float64(len(samples))
	passRate := float64(passed) / float64(len(samples))
	current := c.value.Load()

	switch {
	case passRate > c.params.RaisePassRate && avgScore > c.params.RaiseScore:
		next := c.value.adjust(c.params.RaiseStep)
		c.logger.Info("threshold raised",
			"pass_rate", passRate, "avg_score", avgScore,
			"from", current, "to", next)
		return DirectionRaised, next

	case passRate < c.params.LowerPassRate && avgScore < current:
		next := c.value.adjust(-c.params.LowerStep)
		c.logger.Info("threshold lowered",
			"pass_rate", passRate, "avg_score", avgScore,
			"from", current, "to", next)
		return DirectionLowered, next

	default:
		return DirectionUnchanged, current
	}
}

// Current returns the threshold without adapting it.
func (c *Controller) Current() float64 {
	return c.value.Load()
}
