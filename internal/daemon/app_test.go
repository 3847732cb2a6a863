// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestApp_RunRequiresManager(t *testing.T) {
	a := &App{}
	assert.ErrorIs(t, a.Run(context.Background()), ErrMissingManager)
}

func TestApp_OnlyOnceRunsStartupScan(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.Scan.OnlyOnce = true
	up := &fakeUpstream{items: mediaLibrary(t, 2)}
	rt, err := NewRuntime(cfg, staticUpstream(up))
	require.NoError(t, err)

	m, err := NewManager(testDeps(http.NotFoundHandler()))
	require.NoError(t, err)

	app := NewApp(zerolog.New(io.Discard), m, nil, rt, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := rt.LastReport()
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	rep, _ := rt.LastReport()
	assert.Equal(t, 2, rep.Reported)
	assert.Equal(t, int32(1), up.lists.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestApp_ApplyConfigUpdatesScheduler(t *testing.T) {
	cfg := testConfig(t)
	rt, err := NewRuntime(cfg, staticUpstream(&fakeUpstream{}))
	require.NoError(t, err)

	app := NewApp(zerolog.New(io.Discard), nil, nil, rt, cfg)

	next := testConfig(t)
	next.Scan.Interval = time.Hour
	app.applyConfig(next)
	assert.Equal(t, time.Hour, <-app.scheduler.resetCh)

	bad := testConfig(t)
	bad.Scan.Extractors = "nope"
	app.applyConfig(bad)
	select {
	case d := <-app.scheduler.resetCh:
		t.Fatalf("scheduler reset to %s after failed apply", d)
	default:
	}
}
