package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// ScanDirectory walks root and returns every distinct PDF in walk (lexical) order.
// Files whose content duplicates an earlier one are counted and skipped;
// unreadable entries are counted as failed and the walk continues.
func ScanDirectory(ctx context.Context, root string, skipHidden bool, logger *slog.Logger) ([]Document, ScanStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, ScanStats{}, errors.New("root path is required")
	}

	var docs []Document
	var stats ScanStats
	dedup := NewDeduper()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(path) {
			return nil
		}
		stats.Matched++

		doc, dup, first, err := dedup.Check(path)
		if err != nil {
			logger.Warn("failed to hash file", "path", path, "error", err)
			stats.Failed++
			return nil
		}
		if dup {
			logger.Info("skipping duplicate document", "path", path, "same_as", first)
			stats.Duplicates++
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return docs, stats, fmt.Errorf("walk: %w", err)
	}
	return docs, stats, nil
}
