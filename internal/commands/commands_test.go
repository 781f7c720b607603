package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/repository"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moneybin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func sqliteConfig(t *testing.T) (cfgPath, dsn string) {
	t.Helper()
	dsn = filepath.Join(t.TempDir(), "w2.db")
	return writeConfig(t, fmt.Sprintf("database:\n  driver: sqlite\n  dsn: %s\nlog:\n  level: error\n", dsn)), dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func storeRecord(t *testing.T, dsn string, year int, ssn string) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: common.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	rec := &w2.Record{
		TaxYear:           year,
		EmployeeSSN:       ssn,
		EmployeeFirstName: "Howard",
		EmployeeLastName:  "Radial",
		EmployerEIN:       "12-3456789",
		EmployerName:      "Globex Inc",
		Wages:             decimal.RequireFromString("52000.50"),
		FederalIncomeTax:  decimal.RequireFromString("6100.00"),
		ExtractionID:      uuid.New(),
		ExtractionMethod:  constants.MethodText,
		ConfidenceScore:   0.94,
		SourceFile:        "/inbox/W2_Globex.pdf",
		ExtractedAt:       time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repository.NewW2FormRepository(db, nil).Upsert(ctx, rec))
}

func TestConfigShow(t *testing.T) {
	cfg := writeConfig(t, "extraction:\n  min_confidence_score: 0.9\nlog:\n  level: error\n")
	out, err := run(t, "config", "show", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "min_confidence_score: 0.9")
	assert.Contains(t, out, "agreement_tolerance: 0.05")
	assert.Contains(t, out, "driver: sqlite")
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := writeConfig(t, "extraction:\n  agreement_tolerance: 2\n")
	_, err := run(t, "config", "show", "--config", cfg)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeConfig))
}

func TestLogLevelFlag(t *testing.T) {
	cfg := writeConfig(t, "log:\n  level: info\n")
	_, err := run(t, "config", "show", "--config", cfg, "--log-level", "loud")
	assert.Error(t, err)
}

func TestListAndExport(t *testing.T) {
	cfg, dsn := sqliteConfig(t)
	storeRecord(t, dsn, 2023, "111-22-3333")
	storeRecord(t, dsn, 2024, "123-45-6789")

	out, err := run(t, "list", "--config", cfg, "--tax-year", "2024", "-o", "json")
	require.NoError(t, err)
	var rows []w2.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "123-45-6789", rows[0].EmployeeSSN)
	assert.Equal(t, "52000.50", rows[0].Wages)

	out, err = run(t, "list", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "***-**-6789")
	assert.Contains(t, out, "***-**-3333")
	assert.NotContains(t, out, "123-45-6789")

	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	out, err = run(t, "export", "--config", cfg, "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, xlsx)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestListRejectsUnknownFormat(t *testing.T) {
	cfg, _ := sqliteConfig(t)
	_, err := run(t, "list", "--config", cfg, "-o", "csv")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestDBCommands(t *testing.T) {
	cfg, _ := sqliteConfig(t)
	out, err := run(t, "db", "migrate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	out, err = run(t, "db", "ping", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite database OK")
}

func TestExtractMissingFile(t *testing.T) {
	cfg, _ := sqliteConfig(t)
	_, err := run(t, "extract", filepath.Join(t.TempDir(), "missing.pdf"), "--config", cfg)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeFileNotFound))
}

func TestBatchEmptyDirectory(t *testing.T) {
	cfg, _ := sqliteConfig(t)
	out, err := run(t, "batch", t.TempDir(), "--config", cfg, "--no-store")
	require.NoError(t, err)
	assert.Contains(t, out, "0 PDFs found")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(common.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(common.LogConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
