//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	engines[EngineGosseract] = func(cfg Config, _ Runner) (Recognizer, error) {
		return &gosseractRecognizer{cfg: cfg}, nil
	}
}

// gosseractRecognizer runs libtesseract in-process. A client is created per
// page because gosseract clients are not safe for concurrent use.
type gosseractRecognizer struct {
	cfg Config
}

func (g *gosseractRecognizer) Name() string { return EngineGosseract }

func (g *gosseractRecognizer) newClient(path string) (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if g.cfg.TessdataDir != "" {
		client.TessdataPrefix = g.cfg.TessdataDir
	}
	if err := client.SetLanguage(g.cfg.TesseractLang); err != nil {
		client.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if g.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			client.Close()
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := client.SetImage(path); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

func (g *gosseractRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client, err := g.newClient(path)
	if err != nil {
		return "", err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}

// Confidence averages word-level confidences reported by libtesseract.
func (g *gosseractRecognizer) Confidence(ctx context.Context, path string) (float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	client, err := g.newClient(path)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return 0, fmt.Errorf("gosseract boxes: %w", err)
	}
	if len(boxes) == 0 {
		return 0, nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return float32(sum / float64(len(boxes)) / 100.0), nil
}
