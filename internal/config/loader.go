// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Path returns the config file path the loader reads, or "" when none.
func (l *Loader) Path() string {
	return l.configPath
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The order is strict: defaults, parse file (strict), apply env, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file at path on top of cfg with strict parsing.
// Keys absent from the file keep their current value.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// mergeEnvConfig applies NFOSCAN_* overrides. The current value is the default.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("NFOSCAN_LOG_LEVEL", cfg.LogLevel)

	cfg.Emby.Host = l.envString("NFOSCAN_EMBY_HOST", cfg.Emby.Host)
	cfg.Emby.APIKey = l.envString("NFOSCAN_EMBY_API_KEY", cfg.Emby.APIKey)
	cfg.Emby.UserID = l.envString("NFOSCAN_EMBY_USER_ID", cfg.Emby.UserID)
	cfg.Emby.Timeout = l.envDuration("NFOSCAN_EMBY_TIMEOUT", cfg.Emby.Timeout)
	cfg.Emby.RequestsPerSecond = l.envFloat("NFOSCAN_EMBY_REQUESTS_PER_SECOND", cfg.Emby.RequestsPerSecond)

	cfg.Scan.Workers = l.envInt("NFOSCAN_SCAN_WORKERS", cfg.Scan.Workers)
	cfg.Scan.OnlyOnce = l.envBool("NFOSCAN_SCAN_ONLYONCE", cfg.Scan.OnlyOnce)
	cfg.Scan.Interval = l.envDuration("NFOSCAN_SCAN_INTERVAL", cfg.Scan.Interval)

	cfg.Report.Path = l.envString("NFOSCAN_REPORT_PATH", cfg.Report.Path)
	cfg.API.ListenAddr = l.envString("NFOSCAN_LISTEN", cfg.API.ListenAddr)

	cfg.Telemetry.Enabled = l.envBool("NFOSCAN_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString("NFOSCAN_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("NFOSCAN_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
