// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ManuGH/nfoscan/internal/health"
	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	mu     sync.Mutex
	report *library.Report
	err    error
	last   *library.Report
	calls  int
}

func (s *stubScanner) Run(context.Context) (*library.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.report != nil {
		s.last = s.report
	}
	return s.report, s.err
}

func (s *stubScanner) LastReport() (*library.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

func noLimit(next http.Handler) http.Handler { return next }

func newTestServer(sc Scanner) *Server {
	return New(Config{ScanLimiter: noLimit}, sc, health.NewManager("test"))
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestTriggerScan(t *testing.T) {
	okReport := &library.Report{ScanID: "s1", Listed: 3, Reported: 2, Results: []library.Result{}, Failures: []library.Failure{}}
	listing := &library.Report{ScanID: "s2", ListingError: "library listing failed: boom"}

	tests := []struct {
		name     string
		scanner  *stubScanner
		wantCode int
		wantBody string
	}{
		{"ok", &stubScanner{report: okReport}, http.StatusOK, `"scan_id":"s1"`},
		{"already running", &stubScanner{err: library.ErrScanRunning}, http.StatusConflict, `"error":"scan_running"`},
		{
			"listing failed",
			&stubScanner{report: listing, err: &library.ListingError{Kind: library.ErrListing, Cause: errors.New("boom")}},
			http.StatusBadGateway,
			`"listing_error":"library listing failed: boom"`,
		},
		{"cancelled", &stubScanner{report: okReport, err: context.Canceled}, http.StatusServiceUnavailable, `"error":"scan_cancelled"`},
		{"unexpected", &stubScanner{err: errors.New("disk on fire")}, http.StatusInternalServerError, `"error":"scan_failed"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(tt.scanner), http.MethodPost, "/api/v1/scans")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestTriggerScan_ErrorCarriesRequestID(t *testing.T) {
	srv := newTestServer(&stubScanner{err: library.ErrScanRunning})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body apiError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "req-123", body.RequestID)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestLastScan(t *testing.T) {
	sc := &stubScanner{report: &library.Report{ScanID: "s9"}}
	srv := newTestServer(sc)

	rec := do(t, srv, http.MethodGet, "/api/v1/scans/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	do(t, srv, http.MethodPost, "/api/v1/scans")

	rec = do(t, srv, http.MethodGet, "/api/v1/scans/last")
	require.Equal(t, http.StatusOK, rec.Code)
	var got library.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "s9", got.ScanID)
}

func TestTriggerScan_RateLimited(t *testing.T) {
	sc := &stubScanner{report: &library.Report{ScanID: "s"}}
	srv := New(Config{}, sc, health.NewManager("test"))

	var last *httptest.ResponseRecorder
	for range 11 {
		last = do(t, srv, http.MethodPost, "/api/v1/scans")
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Equal(t, 10, sc.calls)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/v1/scans/last").Code)
}

func TestProbesAndMetrics(t *testing.T) {
	srv := newTestServer(&stubScanner{})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/readyz").Code)

	rec := do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "nfoscan_http_request_duration_seconds"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubScanner{})
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/api/v1/scans").Code)
}
