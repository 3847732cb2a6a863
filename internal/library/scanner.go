// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"errors"
	"io/fs"
	"iter"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/metrics"
	"github.com/ManuGH/nfoscan/internal/nfo"
)

// DefaultWorkers is the parse concurrency used when none is configured.
const DefaultWorkers = 4

// Scanner resolves NFO sidecars for library items and parses them.
type Scanner struct {
	parser  Parser
	mapper  *PathMapper
	workers int
	stat    func(string) (fs.FileInfo, error)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithWorkers sets the number of concurrent parses. n <= 1 scans sequentially.
func WithWorkers(n int) ScannerOption {
	return func(sc *Scanner) { sc.workers = n }
}

// WithPathMappings rewrites server paths before the sidecar lookup.
func WithPathMappings(m []PathMapping) ScannerOption {
	return func(sc *Scanner) { sc.mapper = NewPathMapper(m) }
}

// NewScanner creates a Scanner around p.
func NewScanner(p Parser, opts ...ScannerOption) *Scanner {
	sc := &Scanner{
		parser:  p,
		workers: DefaultWorkers,
		stat:    os.Stat,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Workers returns the configured parse concurrency.
func (sc *Scanner) Workers() int {
	return sc.workers
}

// Scan yields one Outcome per item, in input order. Outcomes are produced
// lazily; breaking out of the loop stops outstanding work. Once ctx is done
// no further items are scheduled.
func (sc *Scanner) Scan(ctx context.Context, items []Item) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		if sc.workers <= 1 {
			sc.scanSequential(ctx, items, yield)
			return
		}
		sc.scanParallel(ctx, items, yield)
	}
}

func (sc *Scanner) scanSequential(ctx context.Context, items []Item, yield func(Outcome) bool) {
	for i, item := range items {
		if ctx.Err() != nil {
			return
		}
		o := sc.process(i, item)
		sc.record(ctx, o)
		if !yield(o) {
			return
		}
	}
}

// scanParallel keeps at most sc.workers parses in flight. Each scheduled item
// gets a one-slot result channel queued on pending in input order, so the
// consumer reads results in order while later parses continue.
func (sc *Scanner) scanParallel(ctx context.Context, items []Item, yield func(Outcome) bool) {
	workCtx, cancel := context.WithCancel(ctx)
	sem := semaphore.NewWeighted(int64(sc.workers))
	pending := make(chan chan Outcome, sc.workers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(pending)
		for i, item := range items {
			if workCtx.Err() != nil {
				return
			}
			if err := sem.Acquire(workCtx, 1); err != nil {
				return
			}
			result := make(chan Outcome, 1)
			select {
			case pending <- result:
			case <-workCtx.Done():
				sem.Release(1)
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				result <- sc.process(i, item)
			}()
		}
	}()

	defer func() {
		cancel()
		for range pending {
		}
		wg.Wait()
	}()

	for result := range pending {
		o := <-result
		sc.record(ctx, o)
		if !yield(o) {
			return
		}
	}
}

func (sc *Scanner) process(index int, item Item) Outcome {
	o := Outcome{Index: index, Item: item}

	serverPath, ok := item.Path()
	if !ok {
		o.State = StateSkippedNoPath
		o.Reason = ReasonNoPath
		return o
	}
	o.MediaPath = sc.mapper.Map(serverPath)
	o.NfoPath = nfo.SidecarPath(o.MediaPath)

	// Only absence skips. Anything else at the sidecar path, a directory
	// included, goes to the parser and fails there.
	_, err := sc.stat(o.NfoPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		o.State = StateSkippedNoNfo
		o.Reason = ReasonNfoMissing
		return o
	case err != nil:
		o.State = StateSkippedNoNfo
		o.Reason = ReasonStatFailed
		o.Err = err
		return o
	}

	start := time.Now()
	info, err := sc.parser.Parse(o.NfoPath)
	metrics.ObserveNfoParse(time.Since(start), err == nil)
	if err != nil {
		o.State = StateFailed
		o.Err = err
		return o
	}
	o.State = StateReported
	o.Info = info
	return o
}

// record logs and counts an outcome. It runs on the consuming goroutine so log
// lines follow input order.
func (sc *Scanner) record(ctx context.Context, o Outcome) {
	metrics.RecordScanItem(o.State.String())
	logger := log.WithComponentFromContext(ctx, "scanner")

	switch o.State {
	case StateReported:
		logger.Info().
			Str(log.FieldEvent, "nfo.parsed").
			Str(log.FieldItemID, o.Item.ID()).
			Str(log.FieldNfoPath, o.NfoPath).
			EmbedObject(o.Info).
			Msg("nfo parsed")
	case StateFailed:
		logger.Error().
			Str(log.FieldEvent, "nfo.parse_failed").
			Str(log.FieldItemID, o.Item.ID()).
			Str(log.FieldNfoPath, o.NfoPath).
			Err(o.Err).
			Msg("nfo parse failed")
	case StateSkippedNoPath, StateSkippedNoNfo:
		if o.Err != nil {
			logger.Warn().
				Str(log.FieldEvent, "nfo.skipped").
				Str(log.FieldReason, o.Reason).
				Str(log.FieldNfoPath, o.NfoPath).
				Err(o.Err).
				Msg("nfo stat failed, skipping item")
			return
		}
		logger.Debug().
			Str(log.FieldEvent, "nfo.skipped").
			Str(log.FieldReason, o.Reason).
			Str(log.FieldItemID, o.Item.ID()).
			Str(log.FieldItemName, o.Item.Name()).
			Str(log.FieldNfoPath, o.NfoPath).
			Msg("item skipped")
	}
}
