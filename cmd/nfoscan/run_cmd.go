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

	"github.com/ManuGH/nfoscan/internal/daemon"
	"github.com/ManuGH/nfoscan/internal/log"
)

// runScanCmd performs one scan. It exits 0 only when the listing succeeded
// and no item failed.
func runScanCmd(args []string, stderr io.Writer) int {
	path, err := parseConfigFlag("nfoscan run", args, stderr)
	if err != nil {
		return exitUsage
	}
	cfg, _, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitFail
	}
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := startTelemetry(ctx, cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	rt, err := daemon.NewRuntime(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Setup error: %v\n", err)
		return exitFail
	}

	rep, err := rt.Run(ctx)
	if rep != nil {
		fmt.Fprintln(stderr, rep.Summary())
	}
	if err != nil {
		if rep == nil {
			fmt.Fprintf(stderr, "scan failed: %v\n", err)
		}
		return exitFail
	}
	if !rep.OK() {
		return exitFail
	}
	return exitOK
}
