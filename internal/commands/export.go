package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/export"
)

func newExportCommand(a *app) *cobra.Command {
	var taxYear int
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored W-2 forms to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, forms, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			data, err := export.NewService(forms, a.logger).W2FormsXLSX(ctx, taxYear)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().IntVar(&taxYear, "tax-year", 0, "only this tax year")
	cmd.Flags().StringVar(&out, "out", "w2_forms.xlsx", "output XLSX path")
	return cmd
}
