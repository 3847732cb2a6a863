// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	embyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nfoscan_emby_requests_total",
		Help: "Requests made to the Emby API by operation and outcome",
	}, []string{"operation", "outcome"}) // outcome=success|error|timeout|unauthorized|circuit_open

	embyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nfoscan_emby_request_duration_seconds",
		Help:    "Latency of Emby API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	embyItemsListed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nfoscan_emby_items_listed",
		Help: "Number of items returned by the last successful listing",
	})
)

// RecordEmbyRequest counts one Emby request attempt and observes its latency.
func RecordEmbyRequest(operation, outcome string, d time.Duration) {
	embyRequestsTotal.WithLabelValues(operation, outcome).Inc()
	embyRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetEmbyItemsListed records the size of the last complete listing.
func SetEmbyItemsListed(n int) {
	embyItemsListed.Set(float64(n))
}
