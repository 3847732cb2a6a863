// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/nfoscan/internal/validate"
)

// Extractor set names accepted by scan.extractors.
var extractorSets = []string{"default", "streamdetails"}

var telemetryExporters = []string{"grpc", "http"}

// Validate checks the whole configuration and returns every violation at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "invalid log level (must be one of trace, debug, info, warn, error)", cfg.LogLevel)
	}

	validateEmby(v, cfg.Emby)
	validateScan(v, cfg.Scan)

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, telemetryExporters)
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}

func validateEmby(v *validate.Validator, e EmbyConfig) {
	v.URL("emby.host", e.Host, []string{"http", "https"})
	v.NotEmpty("emby.apiKey", e.APIKey)
	v.PositiveDuration("emby.timeout", e.Timeout)
	v.Range("emby.pageSize", e.PageSize, 1, 10000)
	v.Range("emby.retries", e.Retries, 0, 10)
	v.FloatRange("emby.requestsPerSecond", e.RequestsPerSecond, 0, 1000)
	for i, t := range e.ItemTypes {
		v.NotEmpty(fmt.Sprintf("emby.itemTypes[%d]", i), t)
	}
}

func validateScan(v *validate.Validator, s ScanConfig) {
	v.Range("scan.workers", s.Workers, 1, 64)
	v.NonNegativeDuration("scan.interval", s.Interval)
	v.OneOf("scan.extractors", s.Extractors, extractorSets)
	if s.MaxNfoBytes <= 0 {
		v.AddError("scan.maxNfoBytes", "must be positive", s.MaxNfoBytes)
	}
	for i, m := range s.PathMappings {
		v.AbsolutePath(fmt.Sprintf("scan.pathMappings[%d].from", i), m.From)
		v.AbsolutePath(fmt.Sprintf("scan.pathMappings[%d].to", i), m.To)
	}
}
