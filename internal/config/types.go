// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version   string          `yaml:"-"`
	LogLevel  string          `yaml:"logLevel"`
	Emby      EmbyConfig      `yaml:"emby"`
	Scan      ScanConfig      `yaml:"scan"`
	Report    ReportConfig    `yaml:"report"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EmbyConfig configures the media server connection.
type EmbyConfig struct {
	Host              string        `yaml:"host"`
	APIKey            string        `yaml:"apiKey"`
	UserID            string        `yaml:"userId"`
	Timeout           time.Duration `yaml:"timeout"`
	PageSize          int           `yaml:"pageSize"`
	Retries           int           `yaml:"retries"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	ItemTypes         []string      `yaml:"itemTypes"`
}

// ScanConfig configures the library scanner.
type ScanConfig struct {
	Workers      int           `yaml:"workers"`
	OnlyOnce     bool          `yaml:"onlyOnce"`
	Interval     time.Duration `yaml:"interval"` // 0 disables periodic scans
	Extractors   string        `yaml:"extractors"`
	MaxNfoBytes  int64         `yaml:"maxNfoBytes"`
	PathMappings []PathMapping `yaml:"pathMappings"`
}

// PathMapping maps a path prefix as seen by the media server to a local prefix.
type PathMapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ReportConfig configures the optional JSON report file.
type ReportConfig struct {
	Path string `yaml:"path"`
}

// APIConfig configures the daemon HTTP API.
type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Emby: EmbyConfig{
			Host:              "http://localhost:8096",
			Timeout:           30 * time.Second,
			PageSize:          500,
			Retries:           2,
			RequestsPerSecond: 5,
			ItemTypes:         []string{"Movie", "Episode"},
		},
		Scan: ScanConfig{
			Workers:     4,
			Extractors:  "default",
			MaxNfoBytes: 10 * 1024 * 1024,
		},
		API: APIConfig{
			ListenAddr: ":8097",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "http",
			Endpoint:     "localhost:4318",
			SamplingRate: 1.0,
		},
	}
}
