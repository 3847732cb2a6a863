// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command nfoscan reads Emby/Kodi NFO sidecars for the items an Emby server
// reports and logs the extracted metadata.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/nfoscan/internal/config"
	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/telemetry"
	"github.com/rs/zerolog"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "-version", "--version", "version":
		fmt.Fprintf(stdout, "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return exitOK
	case "-h", "--help", "help":
		printUsage(stdout)
		return exitOK
	case "run":
		return runScanCmd(args[1:], stderr)
	case "serve":
		return runServeCmd(args[1:], stderr)
	case "config":
		return runConfigCLI(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nfoscan run [--config config.yaml]              run one scan and exit")
	fmt.Fprintln(w, "  nfoscan serve [--config config.yaml]            run the daemon")
	fmt.Fprintln(w, "  nfoscan config validate [--config config.yaml]  check the configuration")
	fmt.Fprintln(w, "  nfoscan --version")
}

// parseConfigFlag parses the --config/-c flag shared by every subcommand.
func parseConfigFlag(name string, args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var path string
	fs.StringVar(&path, "config", "", "path to YAML configuration file")
	fs.StringVar(&path, "c", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if path == "" {
		path = strings.TrimSpace(os.Getenv("NFOSCAN_CONFIG"))
	}
	return path, nil
}

// loadConfig loads the configuration and reconfigures logging from it.
func loadConfig(path string) (config.AppConfig, *config.Loader, error) {
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, err
	}
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
		Service: "nfoscan",
		Version: version,
	})

	logger := log.WithComponent("main")
	ev := logger.Info().Str(log.FieldEvent, "config.loaded")
	if path != "" {
		ev = ev.Str("source", "file").Str("path", path)
	} else {
		ev = ev.Str("source", "env+defaults")
	}
	ev.Msg("loaded configuration")
	return cfg, loader, nil
}

// startTelemetry installs the tracer provider. Failures disable tracing and
// are logged; they never stop a scan.
func startTelemetry(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) *telemetry.Provider {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "nfoscan",
		ServiceVersion: version,
		Environment:    strings.TrimSpace(os.Getenv("NFOSCAN_ENVIRONMENT")),
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "telemetry.init_failed").Msg("tracing disabled")
		tp, _ = telemetry.NewProvider(ctx, telemetry.Config{})
	}
	return tp
}
