// SPDX-License-Identifier: MIT
package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func histogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	h, ok := obs.(prometheus.Histogram)
	require.True(t, ok)
	metric := &dto.Metric{}
	require.NoError(t, h.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestRecordScanRun(t *testing.T) {
	before := testutil.ToFloat64(scanRunsTotal.WithLabelValues("ok"))
	RecordScanRun("ok", 2*time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(scanRunsTotal.WithLabelValues("ok")))
	assert.Greater(t, getGaugeValue(t, lastScanTimestamp), 0.0)
}

func TestRecordScanItem(t *testing.T) {
	for _, state := range []string{"reported", "skipped_no_path", "skipped_no_nfo", "failed"} {
		before := testutil.ToFloat64(scanItemsTotal.WithLabelValues(state))
		RecordScanItem(state)
		assert.Equal(t, before+1, testutil.ToFloat64(scanItemsTotal.WithLabelValues(state)), state)
	}
}

func TestObserveNfoParse(t *testing.T) {
	before := histogramCount(t, nfoParseDuration.WithLabelValues("failure"))
	ObserveNfoParse(time.Millisecond, false)
	assert.Equal(t, before+1, histogramCount(t, nfoParseDuration.WithLabelValues("failure")))
}

func TestRecordEmbyRequest(t *testing.T) {
	before := testutil.ToFloat64(embyRequestsTotal.WithLabelValues("list_items", "success"))
	RecordEmbyRequest("list_items", "success", 150*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(embyRequestsTotal.WithLabelValues("list_items", "success")))

	SetEmbyItemsListed(42)
	assert.Equal(t, 42.0, getGaugeValue(t, embyItemsListed))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("emby", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("emby", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("emby", "closed")))

	SetCircuitBreakerState("emby", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("emby", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("emby", "closed")))

	before := testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("emby"))
	RecordCircuitBreakerTrip("emby")
	assert.Equal(t, before+1, testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("emby")))
}

func TestPromhttpExposure(t *testing.T) {
	RecordScanItem("reported")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `nfoscan_scan_items_total{state="reported"}`))
}
