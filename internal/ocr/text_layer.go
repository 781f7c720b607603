package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moneybin/moneybin-w2/constants"
)

// TextLayer reads the embedded text of every page, cropped to the configured
// region. A document without pages yields a Layer with Pages == 0 and no error.
func (e *Extractor) TextLayer(ctx context.Context, path string) (Layer, error) {
	start := time.Now()
	doc, err := e.inspector.Inspect(path)
	if err != nil {
		return Layer{Method: constants.MethodText}, fmt.Errorf("inspect pdf: %w", err)
	}
	meta := doc.Metadata
	res := Layer{
		Method:   constants.MethodText,
		Engine:   "pdftotext",
		Pages:    len(doc.Pages),
		Metadata: &meta,
	}

	var b strings.Builder
	for i, page := range e.selectPages(doc.Pages) {
		txt, err := e.pdfToText(ctx, path, i+1, page)
		if err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		b.WriteString(txt)
		if !strings.HasSuffix(txt, "\n") {
			b.WriteString("\n")
		}
	}
	res.Text = b.String()
	res.Duration = time.Since(start)
	e.logger.Debug("text layer extracted", "path", path, "pages", res.Pages, "chars", len(res.Text), "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string, pageNo int, page PageSize) (string, error) {
	box := e.cfg.Region.Box(page, 72)
	n := strconv.Itoa(pageNo)
	// pdftotext -f N -l N -x X -y Y -W W -H H -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-f", n, "-l", n,
		"-x", strconv.Itoa(box.X), "-y", strconv.Itoa(box.Y),
		"-W", strconv.Itoa(box.W), "-H", strconv.Itoa(box.H),
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		path, "-")
	if err != nil {
		return "", commandError(fmt.Sprintf("pdftotext page %d", pageNo), err, errb)
	}
	// pdftotext terminates each page with a form feed
	return strings.ReplaceAll(string(out), "\f", ""), nil
}
