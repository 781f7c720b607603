package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moneybin/moneybin-w2/internal/w2"
)

const rawFileName = "w2_form.json"

// SaveRaw writes rec as indented JSON to <root>/extracted/<pdf stem>/w2_form.json
// and returns the file written.
func SaveRaw(root string, rec *w2.Record) (string, error) {
	if root == "" {
		return "", fmt.Errorf("raw data path is empty")
	}
	stem := strings.TrimSuffix(filepath.Base(rec.SourceFile), filepath.Ext(rec.SourceFile))
	dir := filepath.Join(root, "extracted", stem)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	dest := filepath.Join(dir, rawFileName)
	if err := os.WriteFile(dest, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}
