// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/nfoscan/internal/api"
	"github.com/ManuGH/nfoscan/internal/config"
	"github.com/ManuGH/nfoscan/internal/daemon"
	"github.com/ManuGH/nfoscan/internal/health"
	"github.com/ManuGH/nfoscan/internal/log"
)

// runServeCmd runs the daemon until SIGINT/SIGTERM.
func runServeCmd(args []string, stderr io.Writer) int {
	path, err := parseConfigFlag("nfoscan serve", args, stderr)
	if err != nil {
		return exitUsage
	}
	cfg, loader, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitFail
	}
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := startTelemetry(ctx, cfg, logger)

	rt, err := daemon.NewRuntime(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Setup error: %v\n", err)
		return exitFail
	}

	holder := config.NewHolder(cfg, loader)

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("emby", rt.Ping))
	hm.RegisterChecker(health.NewLastScanChecker(rt.LastReport, staleThreshold(holder.Get)))

	apiCfg := api.Config{}
	if cfg.Telemetry.Enabled {
		apiCfg.TracingService = "nfoscan/api"
	}
	srv := api.New(apiCfg, rt, hm)

	mgr, err := daemon.NewManager(daemon.Deps{
		Logger:     logger,
		APIHandler: srv,
		ListenAddr: cfg.API.ListenAddr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Setup error: %v\n", err)
		return exitFail
	}
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)

	app := daemon.NewApp(logger, mgr, holder, rt, cfg)

	logger.Info().
		Str(log.FieldEvent, "daemon.started").
		Str("listen", cfg.API.ListenAddr).
		Dur("interval", cfg.Scan.Interval).
		Bool("only_once", cfg.Scan.OnlyOnce).
		Msg("nfoscan daemon started")

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return exitFail
	}
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("nfoscan daemon stopped")
	return exitOK
}

// staleThreshold follows reloads: the readiness threshold is derived from the
// config current at each check.
func staleThreshold(current func() config.AppConfig) func() time.Duration {
	return func() time.Duration { return staleAfter(current()) }
}

// staleAfter is the age after which the last report counts as stale: two
// missed intervals. Without an interval reports never go stale.
func staleAfter(cfg config.AppConfig) time.Duration {
	if cfg.Scan.Interval <= 0 {
		return 0
	}
	return 2 * cfg.Scan.Interval
}
