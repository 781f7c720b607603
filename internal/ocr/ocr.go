package ocr

import (
	"log/slog"
	"time"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	Engine string // "tesseract" (CLI) | "gosseract" (needs -tags gosseract)

	// Region is the part of every page that is read. Zero value -> PrimaryCopyRegion.
	Region Region
}

// ConfigFromApp maps the ocr section of the app config.
func ConfigFromApp(c common.OCRConfig) Config {
	r := c.PrimaryCopyRegion
	return Config{
		Pdftotext:           c.Pdftotext,
		Pdftoppm:            c.Pdftoppm,
		Tesseract:           c.Tesseract,
		TesseractLang:       c.Lang,
		DPI:                 c.DPI,
		MaxPages:            c.MaxPages,
		TessdataDir:         c.TessdataDir,
		EnableTSVConfidence: c.TSVConfidence,
		PSM:                 c.PSM,
		OEM:                 c.OEM,
		Engine:              c.Engine,
		Region:              Region{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom},
	}
}

// Layer is the raw text obtained from one extraction method.
type Layer struct {
	Text     string
	Pages    int
	Method   constants.Method
	Engine   string
	Language string
	Duration time.Duration
	Warnings []string

	// Confidence is the OCR engine's mean word confidence (0..1), 0 when unavailable.
	Confidence float32

	// Metadata is nil for OCR layers: rasterized images carry no document info.
	Metadata *Metadata
}

type Extractor struct {
	cfg        Config
	runner     Runner
	inspector  Inspector
	recognizer Recognizer
	logger     *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec-based runner (tests use a fake).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func WithInspector(i Inspector) Option {
	return func(e *Extractor) {
		if i != nil {
			e.inspector = i
		}
	}
}

func WithRecognizer(r Recognizer) Option {
	return func(e *Extractor) {
		if r != nil {
			e.recognizer = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineTesseract
	}
	if cfg.Region.IsZero() {
		cfg.Region = PrimaryCopyRegion
	}

	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, inspector: pdfcpuInspector{}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.recognizer == nil {
		e.recognizer = newRecognizer(cfg, e.runner, logger)
	}
	return e
}

// Config returns the effective configuration (defaults applied).
func (e *Extractor) Config() Config { return e.cfg }

func (e *Extractor) selectPages(pages []PageSize) []PageSize {
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		return pages[:e.cfg.MaxPages]
	}
	return pages
}
