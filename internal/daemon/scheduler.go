// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"time"

	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/rs/zerolog"
)

// Scheduler triggers scans on a fixed interval. An interval of 0 disables it
// until SetInterval arms it again.
type Scheduler struct {
	run      func(ctx context.Context)
	interval time.Duration
	resetCh  chan time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler calling run every interval.
func NewScheduler(interval time.Duration, run func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		run:      run,
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
		logger:   log.WithComponent("scheduler"),
	}
}

// SetInterval changes the interval. The next tick is re-armed from now.
// It never blocks; only the latest value is kept.
func (s *Scheduler) SetInterval(d time.Duration) {
	for {
		select {
		case s.resetCh <- d:
			return
		default:
		}
		select {
		case <-s.resetCh:
		default:
		}
	}
}

// Run blocks until ctx is cancelled. Scans run on the scheduler goroutine, so
// ticks that fire during a scan are coalesced.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.interval
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, timerC = nil, nil
		if interval > 0 {
			timer = time.NewTimer(interval)
			timerC = timer.C
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm()
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.started").
		Dur("interval", interval).
		Msg("scan scheduler started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-s.resetCh:
			if d != interval {
				s.logger.Info().
					Str(log.FieldEvent, "scheduler.interval_changed").
					Dur("old", interval).
					Dur("new", d).
					Msg("scan interval changed")
			}
			interval = d
			arm()
		case <-timerC:
			s.logger.Debug().Str(log.FieldEvent, "scheduler.tick").Msg("scheduled scan")
			s.run(ctx)
			arm()
		}
	}
}
