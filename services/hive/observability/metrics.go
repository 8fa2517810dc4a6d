// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the hive engine.
//
// # Description
//
// Metrics cover the two halves of the engine: the learning side (evidence
// ingestion, predictions, threshold movement) and the consensus side
// (round outcomes, durations, worker behavior). Exposed via the /metrics
// endpoint for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all hive engine metrics.
const metricsNamespace = "hivemind"

const (
	learningSubsystem  = "learning"
	consensusSubsystem = "consensus"
)

// Metrics holds all Prometheus metrics for the engine.
//
// Initialize once at startup via InitMetrics(). Components accept a
// *Metrics and treat nil as "metrics disabled".
type Metrics struct {
	// EvidenceTotal counts evidence records appended to the pattern
	// store, by result.
	// Labels: result (passed, failed)
	EvidenceTotal *prometheus.CounterVec

	// PredictionsTotal counts truth score predictions served.
	PredictionsTotal prometheus.Counter

	// PredictionScore observes the distribution of predicted scores.
	PredictionScore prometheus.Histogram

	// ThresholdValue tracks the current acceptance threshold.
	ThresholdValue prometheus.Gauge

	// ThresholdAdjustmentsTotal counts adaptation outcomes.
	// Labels: direction (raised, lowered, unchanged)
	ThresholdAdjustmentsTotal *prometheus.CounterVec

	// RoundsTotal counts consensus rounds by terminal status.
	// Labels: status (decided, inconclusive)
	RoundsTotal *prometheus.CounterVec

	// RoundDurationSeconds observes consensus round wall-clock time.
	// Labels: status (decided, inconclusive)
	RoundDurationSeconds *prometheus.HistogramVec

	// WorkersResponded observes how many workers returned a result per
	// round.
	WorkersResponded prometheus.Histogram

	// WorkerFailuresTotal counts workers that failed or timed out.
	WorkerFailuresTotal prometheus.Counter
}

var (
	initOnce       sync.Once
	defaultMetrics *Metrics
)

// InitMetrics initializes and registers the engine metrics.
//
// # Description
//
// Registers all metrics on the default Prometheus registry. Safe to call
// more than once; subsequent calls return the same instance (convenient
// for tests that build multiple services in one process).
//
// # Outputs
//
//   - *Metrics: The initialized metrics instance.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		defaultMetrics = &Metrics{
			EvidenceTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: learningSubsystem,
					Name:      "evidence_total",
					Help:      "Evidence records appended to the pattern store by result",
				},
				[]string{"result"},
			),

			PredictionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: learningSubsystem,
					Name:      "predictions_total",
					Help:      "Truth score predictions served",
				},
			),

			PredictionScore: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: learningSubsystem,
					Name:      "prediction_score",
					Help:      "Distribution of predicted truth scores",
					Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
				},
			),

			ThresholdValue: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Subsystem: learningSubsystem,
					Name:      "threshold",
					Help:      "Current acceptance threshold",
				},
			),

			ThresholdAdjustmentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: learningSubsystem,
					Name:      "threshold_adjustments_total",
					Help:      "Threshold adaptation outcomes by direction",
				},
				[]string{"direction"},
			),

			RoundsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: consensusSubsystem,
					Name:      "rounds_total",
					Help:      "Consensus rounds by terminal status",
				},
				[]string{"status"},
			),

			RoundDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: consensusSubsystem,
					Name:      "round_duration_seconds",
					Help:      "Consensus round wall-clock duration",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"status"},
			),

			WorkersResponded: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: consensusSubsystem,
					Name:      "workers_responded",
					Help:      "Workers that returned a result per round",
					Buckets:   prometheus.LinearBuckets(0, 1, 16),
				},
			),

			WorkerFailuresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: consensusSubsystem,
					Name:      "worker_failures_total",
					Help:      "Workers that failed or timed out",
				},
			),
		}
	})
	return defaultMetrics
}
