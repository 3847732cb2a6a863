// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/ManuGH/nfoscan/internal/log"
)

// handleTriggerScan runs one scan synchronously and returns its report.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	report, err := s.scans.Run(r.Context())

	var lerr *library.ListingError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, library.ErrScanRunning):
		writeError(w, r, http.StatusConflict, "scan_running", "a scan is already in progress")
	case errors.As(err, &lerr):
		writeJSON(w, http.StatusBadGateway, report)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Err(err).Str(log.FieldEvent, "api.scan_cancelled").Msg("scan cancelled before completion")
		writeError(w, r, http.StatusServiceUnavailable, "scan_cancelled", err.Error())
	default:
		logger.Error().Err(err).Str(log.FieldEvent, "api.scan_failed").Msg("scan failed")
		writeError(w, r, http.StatusInternalServerError, "scan_failed", err.Error())
	}
}

// handleLastScan returns the most recent report.
func (s *Server) handleLastScan(w http.ResponseWriter, r *http.Request) {
	report, ok := s.scans.LastReport()
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found", "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
