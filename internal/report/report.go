// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package report persists scan reports as JSON files.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/ManuGH/nfoscan/internal/log"
)

// Write stores r at path as indented JSON. Missing parent directories are
// created and the previous file is replaced atomically, so readers never
// observe a partial report.
func Write(ctx context.Context, path string, r *library.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := writeAtomic(ctx, path, data); err != nil {
		return err
	}

	log.FromContext(ctx).Info().
		Str(log.FieldEvent, "report.written").
		Str("path", path).
		Str(log.FieldScanID, r.ScanID).
		Msg("scan report written")
	return nil
}
