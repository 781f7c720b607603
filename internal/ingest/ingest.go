// Package ingest discovers W-2 PDFs on disk, by directory scan or by watching an inbox.
package ingest

import (
	"path/filepath"
	"strings"

	"github.com/moneybin/moneybin-w2/constants"
)

// Document is a discovered PDF identified by its content hash.
type Document struct {
	Path    string
	HashHex string
	Size    int64
}

// ScanStats summarizes a directory scan.
type ScanStats struct {
	Scanned    uint32
	Matched    uint32
	Duplicates uint32
	Failed     uint32
}

// AllowedExt checks if a file extension can be ingested.
func AllowedExt(path string) bool {
	return constants.IsAllowedExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
