// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestScheduler_TicksAndReset(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler(5*time.Millisecond, func(context.Context) { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, time.Millisecond)

	s.SetInterval(0)
	// Let the reset land, then verify no further runs happen.
	time.Sleep(20 * time.Millisecond)
	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())

	s.SetInterval(5 * time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() > stopped }, 2*time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestScheduler_DisabledNeverRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler(0, func(context.Context) { runs.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
	assert.Zero(t, runs.Load())
}

func TestScheduler_SetIntervalNeverBlocks(t *testing.T) {
	s := NewScheduler(0, func(context.Context) {})
	for i := range 10 {
		s.SetInterval(time.Duration(i) * time.Second)
	}
	assert.Equal(t, 9*time.Second, <-s.resetCh)
}
