// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/nfo"
)

type stubLister struct {
	items []Item
	err   error
	calls int
	block chan struct{}
}

func (l *stubLister) ListItems(ctx context.Context) ([]Item, error) {
	l.calls++
	if l.block != nil {
		select {
		case <-l.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return l.items, l.err
}

// captureLogs redirects the global logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })
	return &buf
}

func eventsNamed(t *testing.T, buf *bytes.Buffer, event string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry[log.FieldEvent] == event {
			out = append(out, entry)
		}
	}
	return out
}

func TestServiceRun_ThreeItemsOneMalformed(t *testing.T) {
	logs := captureLogs(t)
	dir := t.TempDir()
	lister := &stubLister{items: []Item{
		fixture(t, dir, "a", `<movie><title>A</title><country>USA</country><country>UK</country></movie>`),
		fixture(t, dir, "b", `<movie><title>B`),
		fixture(t, dir, "c", `<movie><title>C</title></movie>`),
	}}

	svc := NewService(lister, NewScanner(nfo.NewParser(), WithWorkers(2)))
	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 3, report.Listed)
	assert.Equal(t, 2, report.Reported)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, []string{"USA", "UK"}, report.Results[0].Info.Country)
	assert.Equal(t, "C", report.Results[1].Info.Title)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, filepath.Join(dir, "b.nfo"), report.Failures[0].NfoPath)
	assert.NotEmpty(t, report.ScanID)
	assert.False(t, report.OK())

	assert.Len(t, eventsNamed(t, logs, "nfo.parsed"), 2)
	failed := eventsNamed(t, logs, "nfo.parse_failed")
	require.Len(t, failed, 1)
	assert.Equal(t, filepath.Join(dir, "b.nfo"), failed[0][log.FieldNfoPath])
	assert.Equal(t, report.ScanID, failed[0][log.FieldScanID])

	parsed := eventsNamed(t, logs, "nfo.parsed")
	assert.Equal(t, "A", parsed[0]["title"])
	assert.Equal(t, []any{"USA", "UK"}, parsed[0]["country"])

	last, ok := svc.LastReport()
	require.True(t, ok)
	assert.Same(t, report, last)
}

func TestServiceRun_EmptyListing(t *testing.T) {
	logs := captureLogs(t)
	svc := NewService(&stubLister{}, NewScanner(nfo.NewParser()))

	report, err := svc.Run(context.Background())
	require.Error(t, err)

	var lerr *ListingError
	require.ErrorAs(t, err, &lerr)
	assert.ErrorIs(t, err, ErrEmptyListing)
	assert.Zero(t, report.Listed)
	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
	assert.NotEmpty(t, report.ListingError)

	assert.Len(t, eventsNamed(t, logs, "library.listing_failed"), 1)
	assert.Empty(t, eventsNamed(t, logs, "nfo.skipped"))
}

func TestServiceRun_ListingFailure(t *testing.T) {
	logs := captureLogs(t)
	upstream := errors.New("connection refused")
	svc := NewService(&stubLister{err: upstream}, NewScanner(nfo.NewParser()))

	report, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrListing)
	assert.ErrorIs(t, err, upstream)
	assert.Contains(t, report.ListingError, "connection refused")
	assert.Len(t, eventsNamed(t, logs, "library.listing_failed"), 1)
}

func TestServiceRun_Singleflight(t *testing.T) {
	dir := t.TempDir()
	lister := &stubLister{
		items: []Item{fixture(t, dir, "a", `<movie/>`)},
		block: make(chan struct{}),
	}
	svc := NewService(lister, NewScanner(nfo.NewParser()))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = svc.Run(context.Background())
	}()

	require.Eventually(t, svc.Running, time.Second, 5*time.Millisecond)
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrScanRunning)

	close(lister.block)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, svc.Running())

	// The lock is released after the run.
	lister.block = nil
	_, err = svc.Run(context.Background())
	assert.NoError(t, err)
}

func TestServiceRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	lister := &stubLister{items: []Item{fixture(t, dir, "a", `<movie/>`)}}
	svc := NewService(lister, NewScanner(nfo.NewParser(), WithWorkers(1)))

	cancel()
	report, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.True(t, report.Cancelled)
	assert.False(t, report.OK())
}

func TestServiceUpdate(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(&stubLister{}, NewScanner(nfo.NewParser()))

	next := &stubLister{items: []Item{fixture(t, dir, "a", `<movie><title>A</title></movie>`)}}
	svc.Update(next, NewScanner(nfo.NewParser(), WithWorkers(1)))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, report.Reported)
	assert.True(t, report.OK())
	assert.Contains(t, report.Summary(), "reported=1")
}
