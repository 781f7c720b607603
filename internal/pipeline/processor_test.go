package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/extract"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

type fakeExtractor struct {
	rec *w2.Record
	err error
}

func (f fakeExtractor) Extract(_ context.Context, path string, taxYear int) (*extract.Outcome, error) {
	if f.err != nil {
		return &extract.Outcome{}, f.err
	}
	rec := *f.rec
	rec.SourceFile = path
	if taxYear > 0 {
		rec.TaxYear = taxYear
	}
	return &extract.Outcome{Record: &rec}, nil
}

type memStore struct {
	saved []*w2.Record
	err   error
}

func (m *memStore) Upsert(_ context.Context, rec *w2.Record) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, rec)
	return nil
}

func sampleRecord() *w2.Record {
	return &w2.Record{
		TaxYear:          2024,
		EmployeeSSN:      "077-49-4905",
		Wages:            decimal.RequireFromString("75000.00"),
		FederalIncomeTax: decimal.RequireFromString("12000.00"),
		ExtractionMethod: constants.MethodText,
	}
}

func TestProcessFile_Stores(t *testing.T) {
	store := &memStore{}
	p := NewProcessor(nil, fakeExtractor{rec: sampleRecord()}, store)
	id := uuid.New()

	res := p.ProcessFile(context.Background(), id, "/inbox/a.pdf", 2023)
	require.NoError(t, res.Err)
	assert.Equal(t, constants.JobStatusExtracted, res.Status)
	assert.Equal(t, id, res.JobID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "/inbox/a.pdf", store.saved[0].SourceFile)
	assert.Equal(t, 2023, store.saved[0].TaxYear)
	assert.Same(t, res.Record, store.saved[0])
}

func TestProcessFile_ExtractFailure(t *testing.T) {
	store := &memStore{}
	p := NewProcessor(nil, fakeExtractor{err: errors.New("both extraction methods failed")}, store)

	res := p.ProcessFile(context.Background(), uuid.New(), "/inbox/b.pdf", 0)
	assert.Equal(t, constants.JobStatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "both extraction methods failed")
	assert.Nil(t, res.Record)
	assert.Empty(t, store.saved)
}

func TestProcessFile_StoreFailure(t *testing.T) {
	p := NewProcessor(nil, fakeExtractor{rec: sampleRecord()}, &memStore{err: errors.New("database is locked")})

	res := p.ProcessFile(context.Background(), uuid.New(), "/inbox/c.pdf", 0)
	assert.Equal(t, constants.JobStatusFailed, res.Status)
	assert.NotNil(t, res.Record)
	assert.ErrorContains(t, res.Err, "database is locked")
}

func TestProcessFile_NoStore(t *testing.T) {
	p := NewProcessor(nil, fakeExtractor{rec: sampleRecord()}, nil)

	res := p.ProcessFile(context.Background(), uuid.New(), "/inbox/d.pdf", 0)
	require.NoError(t, res.Err)
	assert.Equal(t, constants.JobStatusExtracted, res.Status)
}
