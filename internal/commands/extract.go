package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

type extractFlags struct {
	taxYear           int
	noOCR             bool
	allowDisagreement bool
	fallbackTextOnly  bool
	store             bool
	saveRaw           bool
	output            string
}

func newExtractCommand(a *app) *cobra.Command {
	var f extractFlags

	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract one W-2 PDF and print the validated record",
		Long: `Extract one W-2 PDF through the text layer and OCR, arbitrate between the
two candidates and print the validated record.

Examples:
  moneybin-w2 extract W2_2024.pdf
  moneybin-w2 extract W2_2024.pdf --tax-year 2024 --output yaml
  moneybin-w2 extract scan.pdf --fallback-text-only --store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(f.output, formatJSON, formatYAML); err != nil {
				return err
			}
			return runExtract(cmd, a, args[0], f)
		},
	}

	cmd.Flags().IntVar(&f.taxYear, "tax-year", 0, "tax year, when the document does not show it")
	cmd.Flags().BoolVar(&f.noOCR, "no-ocr", false, "skip OCR and rely on the text layer")
	cmd.Flags().BoolVar(&f.allowDisagreement, "allow-disagreement", false, "pick the more confident method when the two disagree")
	cmd.Flags().BoolVar(&f.fallbackTextOnly, "fallback-text-only", false, "retry once without OCR if the methods cannot be reconciled")
	cmd.Flags().BoolVar(&f.store, "store", false, "upsert the record into the configured database")
	cmd.Flags().BoolVar(&f.saveRaw, "save-raw", false, "write the record under extraction.raw_data_path")
	cmd.Flags().StringVarP(&f.output, "output", "o", formatJSON, "output format: json or yaml")

	return cmd
}

func runExtract(cmd *cobra.Command, a *app, path string, f extractFlags) error {
	ctx := cmd.Context()
	if f.saveRaw {
		a.cfg.Extraction.SaveRawData = true
	}
	svc := a.extractService(!f.noOCR, f.allowDisagreement)

	rec, err := svc.ExtractFile(ctx, path, f.taxYear)
	if err != nil && f.fallbackTextOnly && errors.Is(err, common.ErrArbitration) {
		a.logger.Warn("retrying with the text layer only", "path", path, "error", err)
		rec, err = svc.WithOCR(false).ExtractFile(ctx, path, f.taxYear)
	}
	if err != nil {
		return err
	}

	if f.store {
		db, forms, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := forms.Upsert(ctx, rec); err != nil {
			return err
		}
	}

	row, err := w2.RowFromRecord(rec)
	if err != nil {
		return fmt.Errorf("flatten record: %w", err)
	}
	return encode(cmd.OutOrStdout(), f.output, row)
}
