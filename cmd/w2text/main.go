package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/ocr"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		cfgFile  = flag.String("config", "", "config file (default: ./moneybin.yaml)")
		method   = flag.String("method", "both", "which layer to print: text, ocr or both")
		fullPage = flag.Bool("full-page", false, "read whole pages instead of the primary copy region")
		timeout  = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		printError("usage: w2text [flags] <file.pdf>\n")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*cfgFile)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	ocrCfg := ocr.ConfigFromApp(cfg.OCR)
	if *fullPage {
		ocrCfg.Region = ocr.FullPage
	}
	extractor := ocr.NewExtractor(ocrCfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failed := false
	show := func(name string, get func(context.Context, string) (ocr.Layer, error)) {
		layer, err := get(ctx, path)
		if err != nil {
			logger.Error("layer failed", "layer", name, "path", path, "error", err)
			failed = true
			return
		}
		logger.Info("layer ok",
			"layer", name,
			"engine", layer.Engine,
			"pages", layer.Pages,
			"bytes", len(layer.Text),
			"engine_confidence", layer.Confidence,
			"duration_ms", layer.Duration.Milliseconds(),
		)
		for _, w := range layer.Warnings {
			logger.Warn("layer warning", "layer", name, "warning", w)
		}
		fmt.Printf("===== %s =====\n%s\n", name, layer.Text)
	}

	switch *method {
	case "text":
		show("text", extractor.TextLayer)
	case "ocr":
		show("ocr", extractor.OCRLayer)
	case "both":
		show("text", extractor.TextLayer)
		show("ocr", extractor.OCRLayer)
	default:
		printError("unknown -method %q (want text, ocr or both)\n", *method)
		os.Exit(2)
	}
	if failed {
		os.Exit(1)
	}
}
