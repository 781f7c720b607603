package ocr

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

const (
	EngineTesseract = "tesseract"
	EngineGosseract = "gosseract"
)

// Recognizer turns a page image into text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// ConfidenceReporter is implemented by recognizers that can score their own output.
type ConfidenceReporter interface {
	Confidence(ctx context.Context, imagePath string) (float32, error)
}

type recognizerFactory func(cfg Config, r Runner) (Recognizer, error)

var engines = map[string]recognizerFactory{
	EngineTesseract: func(cfg Config, r Runner) (Recognizer, error) {
		return &tesseractCLI{cfg: cfg, runner: r}, nil
	},
}

func newRecognizer(cfg Config, r Runner, logger *slog.Logger) Recognizer {
	factory, ok := engines[cfg.Engine]
	if !ok {
		logger.Warn("ocr engine not compiled in, using tesseract cli", "engine", cfg.Engine)
		factory = engines[EngineTesseract]
	}
	rec, err := factory(cfg, r)
	if err != nil {
		logger.Warn("ocr engine init failed, using tesseract cli", "engine", cfg.Engine, "error", err)
		rec, _ = engines[EngineTesseract](cfg, r)
	}
	return rec
}

type tesseractCLI struct {
	cfg    Config
	runner Runner
}

func (t *tesseractCLI) Name() string { return EngineTesseract }

func (t *tesseractCLI) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

// Recognize runs `tesseract <file> stdout -l <lang>`.
func (t *tesseractCLI) Recognize(ctx context.Context, path string) (string, error) {
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.baseArgs(path)...)
	if err != nil {
		return "", commandError("tesseract", err, errb)
	}
	return string(out), nil
}

// Confidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *tesseractCLI) Confidence(ctx context.Context, path string) (float32, error) {
	args := append(t.baseArgs(path), "tsv")
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return 0, commandError("tesseract TSV", err, errb)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column (the 11th of 12) over recognized words.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
