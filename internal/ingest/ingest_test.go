package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF-a")
	writeFile(t, filepath.Join(root, "nested", "B.PDF"), "%PDF-b")
	writeFile(t, filepath.Join(root, "nested", "copy-of-a.pdf"), "%PDF-a")
	writeFile(t, filepath.Join(root, "notes.txt"), "hello")
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"), "%PDF-c")

	docs, stats, err := ScanDirectory(context.Background(), root, true, nil)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, filepath.Join(root, "a.pdf"), docs[0].Path)
	assert.Equal(t, filepath.Join(root, "nested", "B.PDF"), docs[1].Path)
	assert.Len(t, docs[0].HashHex, 64)
	assert.Equal(t, int64(6), docs[0].Size)
	assert.Equal(t, ScanStats{Scanned: 4, Matched: 3, Duplicates: 1}, stats)

	docs, _, err = ScanDirectory(context.Background(), root, false, nil)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestScanDirectory_MissingRoot(t *testing.T) {
	_, _, err := ScanDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), true, nil)
	assert.Error(t, err)

	_, _, err = ScanDirectory(context.Background(), " ", true, nil)
	assert.Error(t, err)
}

func TestDeduper(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")
	writeFile(t, a, "same")
	writeFile(t, b, "same")

	d := NewDeduper()
	_, dup, _, err := d.Check(a)
	require.NoError(t, err)
	assert.False(t, dup)

	_, dup, first, err := d.Check(b)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, a, first)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "%PDF-old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	docs, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	next := func() Document {
		select {
		case d := <-docs:
			return d
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watcher")
			return Document{}
		}
	}
	assert.Equal(t, filepath.Join(root, "existing.pdf"), next().Path)

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "new.pdf"), "%PDF-new")
	assert.Equal(t, filepath.Join(root, "new.pdf"), next().Path)

	cancel()
	for range docs {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
