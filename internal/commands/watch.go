package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/async"
	"github.com/moneybin/moneybin-w2/internal/ingest"
)

func newWatchCommand(a *app) *cobra.Command {
	var f batchFlags
	var initialScan bool

	cmd := &cobra.Command{
		Use:   "watch <directory>...",
		Short: "Extract W-2 PDFs as they land in inbox directories",
		Long: `Watch one or more directories (recursively) and extract every new PDF once
its writes settle. Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t := &tally{out: cmd.OutOrStdout()}
			q, cleanup, err := a.startQueue(ctx, f, t.handle)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				Debounce:    a.cfg.Batch.Debounce,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}
			a.logger.Info("watching for W-2 PDFs", "roots", args)

			for {
				select {
				case d, ok := <-docs:
					if !ok {
						return nil
					}
					if err := q.Enqueue(ctx, async.NewJob(d.Path, f.taxYear)); err != nil {
						if errors.Is(err, ctx.Err()) {
							return nil
						}
						return err
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					a.logger.Warn("watcher error", "error", err)
				}
			}
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "process PDFs already present at startup")
	return cmd
}
