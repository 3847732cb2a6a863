// SPDX-License-Identifier: MIT

// Package metrics exposes nfoscan's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfoscan_scan_runs_total",
		Help: "Library scan runs by outcome",
	}, []string{"outcome"}) // outcome=ok|listing_failed|empty|cancelled

	scanItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfoscan_scan_items_total",
		Help: "Library items processed by terminal state",
	}, []string{"state"}) // state=reported|skipped_no_path|skipped_no_nfo|failed

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nfoscan_scan_duration_seconds",
		Help:    "Wall time of a full library scan run",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
	})

	lastScanTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nfoscan_last_scan_timestamp_seconds",
		Help: "Unix time the last scan run finished",
	})

	nfoParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nfoscan_nfo_parse_duration_seconds",
		Help:    "Time spent reading and parsing one NFO file",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"outcome"}) // outcome=success|failure
)

// RecordScanRun counts a finished scan run and observes its duration.
func RecordScanRun(outcome string, d time.Duration) {
	scanRunsTotal.WithLabelValues(outcome).Inc()
	scanDuration.Observe(d.Seconds())
	lastScanTimestamp.SetToCurrentTime()
}

// RecordScanItem counts one item reaching a terminal state.
func RecordScanItem(state string) {
	scanItemsTotal.WithLabelValues(state).Inc()
}

// ObserveNfoParse records the latency of a single NFO parse.
func ObserveNfoParse(d time.Duration, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	nfoParseDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
