// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the long-running nfoscan process: API server lifecycle,
// config reload, and scheduled scans.
package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/nfoscan/internal/config"
	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (watchers, reload wiring, scheduler)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	runtime      *Runtime
	scheduler    *Scheduler
	onlyOnce     bool
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, rt *Runtime, cfg config.AppConfig) *App {
	a := &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		runtime:      rt,
		onlyOnce:     cfg.Scan.OnlyOnce,
		reloadSignal: syscall.SIGHUP,
	}
	a.scheduler = NewScheduler(cfg.Scan.Interval, a.scan)
	return a
}

// scan runs one scheduled or start-up scan. Outcomes are logged by the library
// service; only overlap is reported here.
func (a *App) scan(ctx context.Context) {
	if _, err := a.runtime.Run(ctx); errors.Is(err, library.ErrScanRunning) {
		a.logger.Info().
			Str(log.FieldEvent, "scan.skipped_overlap").
			Msg("scan already running, skipping")
	}
}

// applyConfig rebuilds the runtime for a reloaded configuration.
func (a *App) applyConfig(cfg config.AppConfig) {
	if err := a.runtime.Apply(cfg); err != nil {
		a.logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.apply_failed").
			Msg("failed to apply reloaded configuration")
		return
	}
	a.scheduler.SetInterval(cfg.Scan.Interval)
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.logger.Info().
		Str(log.FieldEvent, "config.applied").
		Msg("reloaded configuration applied")
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		g.Go(func() error {
			<-ctx.Done()
			a.cfgHolder.Stop()
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	if a.onlyOnce {
		g.Go(func() error {
			a.logger.Info().Str(log.FieldEvent, "scan.only_once").Msg("running start-up scan")
			a.scan(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}
