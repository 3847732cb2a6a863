// SPDX-License-Identifier: MIT

//go:build windows

package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/nfoscan/internal/log"
)

// writeAtomic writes data via temp file + rename.
// Windows has no fsync-then-rename guarantee, so this is atomic but not durable.
func writeAtomic(ctx context.Context, path string, data []byte) error {
	logger := log.FromContext(ctx)

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".nfoscan-report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmpFile.Close()
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logger.Debug().Err(err).Msg("cleanup temp report file")
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp report file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename report file: %w", err)
	}
	committed = true
	return nil
}
