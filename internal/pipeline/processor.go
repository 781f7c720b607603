// Package pipeline runs one W-2 document through extraction and storage.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/extract"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

// Extractor is satisfied by *extract.Service.
type Extractor interface {
	Extract(ctx context.Context, path string, taxYear int) (*extract.Outcome, error)
}

// Store is satisfied by repository.W2FormRepository.
type Store interface {
	Upsert(ctx context.Context, rec *w2.Record) error
}

// Result is the outcome of one document.
type Result struct {
	JobID    uuid.UUID
	Path     string
	Status   constants.JobStatus
	Record   *w2.Record
	Outcome  *extract.Outcome
	Err      error
	Duration time.Duration
}

// Processor coordinates extraction then storage.
type Processor struct {
	logger    *slog.Logger
	extractor Extractor
	store     Store
}

// NewProcessor builds a Processor. A nil store skips persistence.
func NewProcessor(logger *slog.Logger, extractor Extractor, store Store) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, extractor: extractor, store: store}
}

// ProcessFile extracts the W-2 at path and stores the validated record.
// Failures are reported in Result.Err with status FAILED. ProcessorQueue also
// turns a panic from here into a FAILED result.
func (p *Processor) ProcessFile(ctx context.Context, jobID uuid.UUID, path string, taxYear int) Result {
	start := time.Now()
	ctx = common.WithSourceFile(ctx, path)
	log := common.LoggerFromContext(ctx, p.logger).With("job_id", jobID)
	res := Result{JobID: jobID, Path: path, Status: constants.JobStatusRunning}

	// 1) extraction → arbitrated, validated record
	out, err := p.extractor.Extract(ctx, path, taxYear)
	res.Outcome = out
	if err != nil {
		log.Error("processor extract failed", "error", err)
		return p.finish(res, start, err)
	}
	res.Record = out.Record
	log.Debug("processor extract success",
		"method", out.Record.ExtractionMethod,
		"confidence", out.Record.ConfidenceScore,
		"tax_year", out.Record.TaxYear,
	)

	// 2) storage
	if p.store != nil {
		if err := p.store.Upsert(ctx, out.Record); err != nil {
			log.Error("processor store failed", "error", err)
			return p.finish(res, start, err)
		}
		log.Debug("processor store success", "extraction_id", out.Record.ExtractionID)
	}
	return p.finish(res, start, nil)
}

func (p *Processor) finish(res Result, start time.Time, err error) Result {
	res.Duration = time.Since(start)
	res.Err = err
	if err != nil {
		res.Status = constants.JobStatusFailed
	} else {
		res.Status = constants.JobStatusExtracted
	}
	return res
}
