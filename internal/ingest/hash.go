package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// HashFile returns the hex SHA-256 of the file at path and its size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Deduper remembers content hashes so the same PDF is not processed twice.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]string{}}
}

// Check hashes path and reports whether its content was seen before; firstPath
// is where it was first seen.
func (d *Deduper) Check(path string) (doc Document, duplicate bool, firstPath string, err error) {
	hashHex, size, err := HashFile(path)
	if err != nil {
		return Document{}, false, "", err
	}
	doc = Document{Path: path, HashHex: hashHex, Size: size}

	d.mu.Lock()
	defer d.mu.Unlock()
	if first, ok := d.seen[hashHex]; ok {
		return doc, true, first, nil
	}
	d.seen[hashHex] = path
	return doc, false, "", nil
}
