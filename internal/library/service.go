// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/metrics"
	"github.com/ManuGH/nfoscan/internal/telemetry"
)

// Service runs scans: one listing followed by a full pass of the Scanner.
type Service struct {
	// scanMu guards against concurrent runs; it is only ever TryLock'ed.
	scanMu  sync.Mutex
	running atomic.Bool

	mu      sync.RWMutex
	lister  Lister
	scanner *Scanner
	last    *Report

	newID func() string
	now   func() time.Time
}

// NewService creates a new library service.
func NewService(lister Lister, scanner *Scanner) *Service {
	return &Service{
		lister:  lister,
		scanner: scanner,
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// Update swaps the lister and scanner used by subsequent runs. A run in
// progress keeps the ones it started with.
func (s *Service) Update(lister Lister, scanner *Scanner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lister = lister
	s.scanner = scanner
}

// Running reports whether a scan is in progress.
func (s *Service) Running() bool {
	return s.running.Load()
}

// LastReport returns the report of the most recent completed run.
func (s *Service) LastReport() (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// Run performs one scan. It returns ErrScanRunning without blocking when a scan
// is already in progress. A failed or empty listing returns the report together
// with a *ListingError; a cancelled context returns the partial report and
// ctx.Err().
func (s *Service) Run(ctx context.Context) (*Report, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanRunning
	}
	defer s.scanMu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	s.mu.RLock()
	lister, scanner := s.lister, s.scanner
	s.mu.RUnlock()

	scanID := s.newID()
	ctx = log.ContextWithScanID(ctx, scanID)
	ctx, span := telemetry.Tracer("nfoscan/library").Start(ctx, "library.scan",
		trace.WithAttributes(
			attribute.String(telemetry.ScanIDKey, scanID),
			attribute.Int(telemetry.ScanWorkersKey, scanner.Workers()),
		))
	defer span.End()

	logger := log.WithComponentFromContext(ctx, "library")
	report := &Report{
		ScanID:   scanID,
		Started:  s.now(),
		Results:  []Result{},
		Failures: []Failure{},
	}
	logger.Info().Str(log.FieldEvent, "scan.started").Msg("library scan started")

	items, err := lister.ListItems(ctx)
	var lerr *ListingError
	switch {
	case err != nil:
		lerr = &ListingError{Kind: ErrListing, Cause: err}
	case len(items) == 0:
		lerr = &ListingError{Kind: ErrEmptyListing}
	}
	if lerr != nil {
		report.ListingError = lerr.Error()
		report.Finished = s.now()
		logger.Error().
			Str(log.FieldEvent, "library.listing_failed").
			Err(lerr).
			Msg("library listing failed")
		telemetry.RecordError(span, lerr, "listing")
		outcome := "listing_failed"
		if errors.Is(lerr, ErrEmptyListing) {
			outcome = "empty"
		}
		s.finish(report, outcome)
		return report, lerr
	}

	report.Listed = len(items)
	for o := range scanner.Scan(ctx, items) {
		report.add(o)
	}
	report.Finished = s.now()

	span.SetAttributes(telemetry.ScanResultAttributes(
		report.Listed, report.Reported, report.SkippedNoPath, report.SkippedNoNfo, report.Failed)...)

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		logger.Warn().
			Str(log.FieldEvent, "scan.completed").
			Int("processed", report.Reported+report.SkippedNoPath+report.SkippedNoNfo+report.Failed).
			Int("listed", report.Listed).
			Err(err).
			Msg("library scan cancelled")
		telemetry.RecordError(span, err, "cancelled")
		s.finish(report, "cancelled")
		return report, err
	}

	logger.Info().
		Str(log.FieldEvent, "scan.completed").
		Int("listed", report.Listed).
		Int("reported", report.Reported).
		Int("skipped_no_path", report.SkippedNoPath).
		Int("skipped_no_nfo", report.SkippedNoNfo).
		Int("failed", report.Failed).
		Dur("duration", report.Duration()).
		Msg("library scan completed")
	s.finish(report, "ok")
	return report, nil
}

func (s *Service) finish(report *Report, outcome string) {
	metrics.RecordScanRun(outcome, report.Duration())
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}
