package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Extraction.EnableOCR)
	assert.True(t, cfg.Extraction.RequireDualExtraction)
	assert.InDelta(t, 0.8, cfg.Extraction.MinConfidenceScore, 1e-9)
	assert.InDelta(t, 0.8, cfg.Extraction.AgreementThreshold, 1e-9)
	assert.InDelta(t, 0.05, cfg.Extraction.AgreementTolerance, 1e-9)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, "eng", cfg.OCR.Lang)
	assert.Equal(t, EngineTesseract, cfg.OCR.Engine)
	assert.Equal(t, RegionConfig{Left: 0, Top: 0, Right: 0.5, Bottom: 0.5}, cfg.OCR.PrimaryCopyRegion)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 3*time.Minute, cfg.Batch.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moneybin.yaml")
	content := `
extraction:
  require_dual_extraction: false
  min_confidence_score: 0.7
ocr:
  dpi: 200
  primary_copy_region:
    right: 1.0
    bottom: 1.0
database:
  dsn: /tmp/w2.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("MONEYBIN_EXTRACTION_ENABLE_OCR", "false")
	t.Setenv("MONEYBIN_BATCH_WORKERS", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Extraction.RequireDualExtraction)
	assert.False(t, cfg.Extraction.EnableOCR)
	assert.InDelta(t, 0.7, cfg.Extraction.MinConfidenceScore, 1e-9)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.Equal(t, 1.0, cfg.OCR.PrimaryCopyRegion.Right)
	assert.Equal(t, 0.0, cfg.OCR.PrimaryCopyRegion.Left)
	assert.Equal(t, "/tmp/w2.db", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Batch.Workers)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfig))
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence above one", func(c *Config) { c.Extraction.MinConfidenceScore = 1.5 }},
		{"negative threshold", func(c *Config) { c.Extraction.AgreementThreshold = -0.1 }},
		{"zero tolerance", func(c *Config) { c.Extraction.AgreementTolerance = 0 }},
		{"zero dpi", func(c *Config) { c.OCR.DPI = 0 }},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "abbyy" }},
		{"inverted region", func(c *Config) { c.OCR.PrimaryCopyRegion.Left = 0.6 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, IsCode(err, CodeConfig))
		})
	}
}
