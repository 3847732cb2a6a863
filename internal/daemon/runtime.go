// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ManuGH/nfoscan/internal/config"
	"github.com/ManuGH/nfoscan/internal/emby"
	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/ManuGH/nfoscan/internal/log"
	"github.com/ManuGH/nfoscan/internal/nfo"
	"github.com/ManuGH/nfoscan/internal/report"
)

// Upstream is the media server collaborator: it lists items and answers pings.
type Upstream interface {
	library.Lister
	Ping(ctx context.Context) error
}

// UpstreamFactory builds the upstream for a configuration.
type UpstreamFactory func(cfg config.AppConfig) Upstream

// EmbyConfig maps the application configuration onto the Emby client config.
func EmbyConfig(cfg config.AppConfig) emby.Config {
	return emby.Config{
		Host:              cfg.Emby.Host,
		APIKey:            cfg.Emby.APIKey,
		UserID:            cfg.Emby.UserID,
		Timeout:           cfg.Emby.Timeout,
		PageSize:          cfg.Emby.PageSize,
		Retries:           cfg.Emby.Retries,
		RequestsPerSecond: cfg.Emby.RequestsPerSecond,
		ItemTypes:         cfg.Emby.ItemTypes,
	}
}

func newEmbyUpstream(cfg config.AppConfig) Upstream {
	return emby.New(EmbyConfig(cfg))
}

// NewScanner builds the NFO parser and scanner described by cfg.
func NewScanner(cfg config.AppConfig) (*library.Scanner, error) {
	extractors, ok := nfo.ExtractorSet(cfg.Scan.Extractors)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtractors, cfg.Scan.Extractors)
	}
	parser := nfo.NewParser(
		nfo.WithMaxBytes(cfg.Scan.MaxNfoBytes),
		nfo.WithExtractors(extractors),
	)
	mappings := make([]library.PathMapping, 0, len(cfg.Scan.PathMappings))
	for _, m := range cfg.Scan.PathMappings {
		mappings = append(mappings, library.PathMapping{From: m.From, To: m.To})
	}
	return library.NewScanner(parser,
		library.WithWorkers(cfg.Scan.Workers),
		library.WithPathMappings(mappings),
	), nil
}

// Runtime owns the scan service and the collaborators built from the current
// configuration. Apply swaps them on reload.
type Runtime struct {
	svc         *library.Service
	newUpstream UpstreamFactory

	mu         sync.RWMutex
	upstream   Upstream
	reportPath string
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithUpstreamFactory replaces the Emby client factory.
func WithUpstreamFactory(f UpstreamFactory) RuntimeOption {
	return func(r *Runtime) { r.newUpstream = f }
}

// NewRuntime builds the runtime for cfg.
func NewRuntime(cfg config.AppConfig, opts ...RuntimeOption) (*Runtime, error) {
	r := &Runtime{newUpstream: newEmbyUpstream}
	for _, opt := range opts {
		opt(r)
	}
	scanner, err := NewScanner(cfg)
	if err != nil {
		return nil, err
	}
	r.upstream = r.newUpstream(cfg)
	r.reportPath = cfg.Report.Path
	r.svc = library.NewService(r.upstream, scanner)
	return r, nil
}

// Apply rebuilds the upstream client and the scanner from cfg. A scan in
// progress finishes with the previous ones.
func (r *Runtime) Apply(cfg config.AppConfig) error {
	scanner, err := NewScanner(cfg)
	if err != nil {
		return err
	}
	upstream := r.newUpstream(cfg)

	r.mu.Lock()
	r.upstream = upstream
	r.reportPath = cfg.Report.Path
	r.mu.Unlock()

	r.svc.Update(upstream, scanner)
	return nil
}

// Run performs one scan and, when a report path is configured, writes the
// report file. A failed report write is logged and does not change the scan
// result.
func (r *Runtime) Run(ctx context.Context) (*library.Report, error) {
	rep, err := r.svc.Run(ctx)
	if rep == nil || errors.Is(err, library.ErrScanRunning) {
		return rep, err
	}

	r.mu.RLock()
	path := r.reportPath
	r.mu.RUnlock()
	if path != "" {
		ctx := log.ContextWithScanID(context.WithoutCancel(ctx), rep.ScanID)
		if werr := report.Write(ctx, path, rep); werr != nil {
			logger := log.WithComponentFromContext(ctx, "daemon")
			logger.Error().
				Err(werr).
				Str(log.FieldEvent, "report.write_failed").
				Str("path", path).
				Msg("failed to write scan report")
		}
	}
	return rep, err
}

// LastReport returns the report of the most recent run.
func (r *Runtime) LastReport() (*library.Report, bool) {
	return r.svc.LastReport()
}

// Running reports whether a scan is in progress.
func (r *Runtime) Running() bool {
	return r.svc.Running()
}

// Ping checks the current upstream.
func (r *Runtime) Ping(ctx context.Context) error {
	r.mu.RLock()
	up := r.upstream
	r.mu.RUnlock()
	return up.Ping(ctx)
}
