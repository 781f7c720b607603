package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes the poppler and tesseract binaries; tests stub it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// installHints names the package that provides each external tool.
var installHints = map[string]string{
	"pdftotext": "poppler-utils",
	"pdftoppm":  "poppler-utils",
	"tesseract": "tesseract-ocr",
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath(name); err != nil {
		if pkg, ok := installHints[baseName(name)]; ok {
			return nil, nil, fmt.Errorf("%s not found (install %s): %w", name, pkg, err)
		}
		return nil, nil, err
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		err = fmt.Errorf("%w (%v)", ctxErr, err)
	}
	log := logger.With("cmd", name, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		log.Error("exec failed", "args", strings.Join(args, " "), "error", err, "stderr", truncate(errb.String(), 8<<10))
	} else {
		log.Debug("exec ok", "stdout_bytes", out.Len(), "stderr_bytes", errb.Len())
	}
	return out.Bytes(), errb.Bytes(), err
}

// commandError folds the tool's stderr into err so failures explain themselves.
func commandError(what string, err error, stderr []byte) error {
	msg := truncate(strings.TrimSpace(string(stderr)), 512)
	if msg == "" {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %s", what, err, msg)
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
