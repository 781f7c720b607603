package commands

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/async"
	"github.com/moneybin/moneybin-w2/internal/ingest"
	"github.com/moneybin/moneybin-w2/internal/pipeline"
)

type batchFlags struct {
	taxYear           int
	workers           int
	noOCR             bool
	noStore           bool
	allowDisagreement bool
	includeHidden     bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.taxYear, "tax-year", 0, "tax year applied to every document that does not show one")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent extractions (default: batch.workers)")
	cmd.Flags().BoolVar(&f.noOCR, "no-ocr", false, "skip OCR and rely on the text layer")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "extract only, do not write to the database")
	cmd.Flags().BoolVar(&f.allowDisagreement, "allow-disagreement", false, "pick the more confident method when the two disagree")
	cmd.Flags().BoolVar(&f.includeHidden, "include-hidden", false, "also read hidden files and directories")
}

// tally counts results reported from worker goroutines.
type tally struct {
	mu        sync.Mutex
	out       io.Writer
	processed int
	failed    int
}

func (t *tally) handle(res pipeline.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	if res.Err != nil {
		t.failed++
		fmt.Fprintf(t.out, "FAILED     %s: %v\n", res.Path, res.Err)
		return
	}
	fmt.Fprintf(t.out, "%-10s %s (%d, %s, confidence %.2f)\n",
		res.Status, res.Path, res.Record.TaxYear, res.Record.ExtractionMethod, res.Record.ConfidenceScore)
}

func (t *tally) counts() (processed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed, t.failed
}

// startQueue wires extraction, optional storage and the worker queue.
// The returned cleanup drains the queue and closes the database.
func (a *app) startQueue(ctx context.Context, f batchFlags, onResult async.ResultHandler) (*async.ProcessorQueue, func(), error) {
	var store pipeline.Store
	closeDB := func() {}
	if !f.noStore {
		db, forms, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		store = forms
		closeDB = db.Close
	}

	workers := f.workers
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}
	proc := pipeline.NewProcessor(a.logger, a.extractService(!f.noOCR, f.allowDisagreement), store)
	q := async.NewProcessorQueue(proc, a.logger,
		async.WithWorkers(workers),
		async.WithQueueSize(a.cfg.Batch.QueueSize),
		async.WithProcessTimeout(a.cfg.Batch.Timeout),
		async.WithResultHandler(onResult),
	)
	cleanup := func() {
		q.Shutdown(context.Background())
		closeDB()
	}
	return q, cleanup, nil
}

func newBatchCommand(a *app) *cobra.Command {
	var f batchFlags

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Extract every W-2 PDF under a directory",
		Long: `Walk a directory, skip PDFs whose content was already seen in this run,
extract the rest concurrently and store the validated records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, args[0], f)
		},
	}
	f.register(cmd)
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, dir string, f batchFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	docs, stats, err := ingest.ScanDirectory(ctx, dir, !f.includeHidden, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("scan complete", "dir", dir, "scanned", stats.Scanned, "matched", stats.Matched,
		"duplicates", stats.Duplicates, "failed", stats.Failed)

	t := &tally{out: out}
	q, cleanup, err := a.startQueue(ctx, f, t.handle)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := q.Enqueue(ctx, async.NewJob(d.Path, f.taxYear)); err != nil {
			cleanup()
			return err
		}
	}
	cleanup()

	processed, failed := t.counts()
	fmt.Fprintf(out, "\n%d PDFs found, %d duplicates skipped, %d processed, %d failed\n",
		stats.Matched, stats.Duplicates, processed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, processed)
	}
	return nil
}
