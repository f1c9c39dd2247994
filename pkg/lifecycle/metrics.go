/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pr_preview_runs_total",
			Help: "The number of preview runs by decision and outcome",
		},
		[]string{"decision", "outcome"},
	)
	mDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pr_preview_duration_seconds",
			Help:    "The wall-clock duration of preview runs",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"decision"},
	)
)

func record(out Outcome, elapsed time.Duration) {
	decision := string(out.Decision)
	if decision == "" {
		// Failed before a decision was made.
		decision = "undecided"
	}
	mRuns.With(prometheus.Labels{
		"decision": decision,
		"outcome":  string(out.Kind),
	}).Inc()
	if out.Kind != Skipped {
		mDuration.With(prometheus.Labels{"decision": decision}).Observe(elapsed.Seconds())
	}
}
