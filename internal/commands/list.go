package commands

import (
	"github.com/spf13/cobra"

	"github.com/moneybin/moneybin-w2/internal/repository"
)

func newListCommand(a *app) *cobra.Command {
	var filter repository.ListFilter
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored W-2 forms, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output, formatTable, formatJSON, formatYAML); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, forms, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := forms.List(ctx, filter)
			if err != nil {
				return err
			}
			if output == formatTable {
				return writeTable(cmd.OutOrStdout(), rows)
			}
			return encode(cmd.OutOrStdout(), output, rows)
		},
	}

	cmd.Flags().IntVar(&filter.TaxYear, "tax-year", 0, "only this tax year")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows (0 = all)")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table, json or yaml")
	return cmd
}
