// Package extract runs both extraction methods over a W-2 PDF and turns the
// arbitrated candidate into a validated record.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/ocr"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

// TextSource produces the raw text of a PDF through the two independent methods.
// *ocr.Extractor is the production implementation.
type TextSource interface {
	TextLayer(ctx context.Context, path string) (ocr.Layer, error)
	OCRLayer(ctx context.Context, path string) (ocr.Layer, error)
}

type Options struct {
	Policy      w2.Policy
	EnableOCR   bool
	SaveRawData bool
	RawDataPath string
}

// OptionsFromConfig maps the extraction section of the app config.
func OptionsFromConfig(cfg common.ExtractionConfig) Options {
	return Options{
		Policy: w2.Policy{
			RequireDualExtraction: cfg.RequireDualExtraction,
			MinConfidenceScore:    cfg.MinConfidenceScore,
			AgreementThreshold:    cfg.AgreementThreshold,
			AgreementTolerance:    cfg.AgreementTolerance,
		},
		EnableOCR:   cfg.EnableOCR,
		SaveRawData: cfg.SaveRawData,
		RawDataPath: cfg.RawDataPath,
	}
}

// Outcome is everything one extraction produced, for callers that report per-method detail.
type Outcome struct {
	Record   *w2.Record
	Text     w2.ExtractionResult
	OCR      w2.ExtractionResult
	Decision w2.Decision
}

type Service struct {
	source  TextSource
	parser  *w2.Parser
	arbiter *w2.Arbiter
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(source TextSource, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:  source,
		parser:  w2.NewParser(logger),
		arbiter: w2.NewArbiter(opts.Policy, logger),
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// WithOCR returns a copy of s with OCR switched on or off; the policy is unchanged.
func (s *Service) WithOCR(enabled bool) *Service {
	cp := *s
	cp.opts.EnableOCR = enabled
	return &cp
}

// ExtractFile extracts a validated record from the PDF at path. taxYear 0 means unknown.
func (s *Service) ExtractFile(ctx context.Context, path string, taxYear int) (*w2.Record, error) {
	out, err := s.Extract(ctx, path, taxYear)
	if err != nil {
		return nil, err
	}
	return out.Record, nil
}

// Extract is ExtractFile plus both per-method results and the arbitration decision.
// On arbitration or validation failure the returned Outcome still carries the method results.
func (s *Service) Extract(ctx context.Context, path string, taxYear int) (*Outcome, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.FileNotFoundError(path, err)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	ctx = common.WithSourceFile(ctx, path)
	log := common.LoggerFromContext(ctx, s.logger)

	out := &Outcome{}
	out.Text = s.run(ctx, constants.MethodText, path, taxYear)
	if s.opts.EnableOCR {
		out.OCR = s.run(ctx, constants.MethodOCR, path, taxYear)
	} else {
		out.OCR = w2.Failed(constants.MethodOCR, "OCR disabled by configuration")
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	decision, err := s.arbiter.Decide(out.Text, out.OCR)
	if err != nil {
		log.Warn("extraction rejected", "error", err)
		return out, fmt.Errorf("%s: %w", path, err)
	}
	out.Decision = decision

	rec, err := w2.Validate(decision.Candidate)
	if err != nil {
		log.Warn("extraction failed validation", "method", decision.Method, "error", err)
		return out, fmt.Errorf("%s: %w", path, err)
	}
	rec.ExtractionID = uuid.New()
	rec.ExtractionMethod = decision.Method
	rec.ConfidenceScore = decision.Confidence
	rec.Agreement = decision.Agreement
	rec.SourceFile = path
	rec.ExtractedAt = s.now().UTC()
	out.Record = rec

	log.Info("w2 extracted",
		"method", rec.ExtractionMethod,
		"confidence", rec.ConfidenceScore,
		"state", decision.State,
		"tax_year", rec.TaxYear)

	if s.opts.SaveRawData {
		if dest, err := SaveRaw(s.opts.RawDataPath, rec); err != nil {
			log.Warn("raw save failed", "error", err)
		} else {
			log.Debug("raw record saved", "dest", dest)
		}
	}
	return out, nil
}

// run executes one method. It never returns an error: every failure,
// including a panic in the parser, becomes a failed result.
func (s *Service) run(ctx context.Context, method constants.Method, path string, taxYear int) (res w2.ExtractionResult) {
	log := common.LoggerFromContext(ctx, s.logger).With("method", method)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = w2.Failed(method, fmt.Sprintf("%s extraction panicked: %v", method, r))
		}
		res.Duration = time.Since(start)
		if res.Success {
			log.Debug("extraction method succeeded", "confidence", res.ConfidenceScore, "duration_ms", res.Duration.Milliseconds())
		} else {
			log.Debug("extraction method failed", "error", res.Error, "duration_ms", res.Duration.Milliseconds())
		}
	}()

	var (
		layer ocr.Layer
		err   error
		empty string
	)
	switch method {
	case constants.MethodOCR:
		layer, err = s.source.OCRLayer(ctx, path)
		empty = "No text extracted via OCR"
	default:
		layer, err = s.source.TextLayer(ctx, path)
		empty = "No text extracted"
	}
	if err != nil {
		return w2.Failed(method, err.Error())
	}
	if layer.Pages == 0 {
		return w2.Failed(method, "PDF contains no pages")
	}
	if strings.TrimSpace(layer.Text) == "" {
		if len(layer.Warnings) > 0 {
			empty += ": " + strings.Join(layer.Warnings, "; ")
		}
		res = w2.Failed(method, empty)
		res.Pages = layer.Pages
		res.Warnings = layer.Warnings
		return res
	}

	in := w2.Input{Text: layer.Text, SourceFile: path, TaxYear: taxYear}
	if layer.Metadata != nil {
		in.CreationDate = layer.Metadata.CreationDate
	}
	data, err := s.parser.Parse(in)
	if err != nil {
		res = w2.Failed(method, err.Error())
	} else {
		res = w2.Succeeded(method, data)
	}
	res.Pages = layer.Pages
	res.Warnings = layer.Warnings
	res.EngineConfidence = layer.Confidence
	return res
}
