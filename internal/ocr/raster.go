package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/moneybin/moneybin-w2/constants"
)

// OCRLayer rasterizes every page at the configured DPI, crops it to the
// configured region and runs the recognizer over the resulting image.
// Pages whose recognition fails are skipped with a warning.
func (e *Extractor) OCRLayer(ctx context.Context, path string) (Layer, error) {
	start := time.Now()
	doc, err := e.inspector.Inspect(path)
	if err != nil {
		return Layer{Method: constants.MethodOCR}, fmt.Errorf("inspect pdf: %w", err)
	}
	res := Layer{
		Method:   constants.MethodOCR,
		Engine:   e.recognizer.Name(),
		Language: e.cfg.TesseractLang,
		Pages:    len(doc.Pages),
	}
	pages := e.selectPages(doc.Pages)
	if len(pages) == 0 {
		res.Duration = time.Since(start)
		return res, nil
	}

	tmpDir, err := os.MkdirTemp("", "w2-ocr-*")
	if err != nil {
		return res, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	var b strings.Builder
	var confSum float32
	var confN int
	for i, page := range pages {
		img, err := e.rasterize(ctx, path, tmpDir, i+1, page)
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		txt, err := e.recognizer.Recognize(ctx, img)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Normalize(txt))

		if cr, ok := e.recognizer.(ConfidenceReporter); ok && e.cfg.EnableTSVConfidence {
			c, err := cr.Confidence(ctx, img)
			if err != nil {
				res.Warnings = append(res.Warnings, err.Error())
			} else if c > 0 {
				confSum += c
				confN++
			}
		}
	}
	if confN > 0 {
		res.Confidence = confSum / float32(confN)
	}
	res.Text = b.String()
	res.Duration = time.Since(start)
	e.logger.Debug("ocr layer extracted",
		"path", path,
		"pages", res.Pages,
		"chars", len(res.Text),
		"engine", res.Engine,
		"engine_confidence", res.Confidence,
		"warnings", len(res.Warnings),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// rasterize renders one cropped page to <dir>/page-N.png.
func (e *Extractor) rasterize(ctx context.Context, path, dir string, pageNo int, page PageSize) (string, error) {
	box := e.cfg.Region.Box(page, e.cfg.DPI)
	n := strconv.Itoa(pageNo)
	prefix := filepath.Join(dir, "page-"+n)
	// pdftoppm -f N -l N -r DPI -x X -y Y -W W -H H -png -singlefile <in.pdf> <prefix>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", n, "-l", n,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-x", strconv.Itoa(box.X), "-y", strconv.Itoa(box.Y),
		"-W", strconv.Itoa(box.W), "-H", strconv.Itoa(box.H),
		"-png", "-singlefile",
		path, prefix)
	if err != nil {
		return "", commandError(fmt.Sprintf("pdftoppm page %d", pageNo), err, errb)
	}
	return prefix + ".png", nil
}
