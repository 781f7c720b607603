package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/moneybin/moneybin-w2/internal/w2"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (want one of %v)", format, allowed)
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// writeTable prints one summary line per row with the SSN masked.
func writeTable(w io.Writer, rows []w2.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tEMPLOYEE\tSSN\tEMPLOYER\tEIN\tWAGES\tFED TAX\tMETHOD\tCONF")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			r.TaxYear, r.EmployeeFirstName, r.EmployeeLastName, r.MaskedSSN(),
			r.EmployerName, r.EmployerEIN, r.Wages, r.FederalIncomeTax,
			r.ExtractionMethod, r.ConfidenceScore)
	}
	return tw.Flush()
}
