package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/moneybin/moneybin-w2/internal/repository"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

const sheetName = "W2 Forms"

// Lister is the part of the W-2 store the export reads from.
type Lister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]w2.Row, error)
}

// Service produces XLSX workbooks of stored W-2 forms.
type Service struct {
	forms  Lister
	logger *slog.Logger
}

func NewService(forms Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{forms: forms, logger: logger}
}

type column struct {
	header string
	width  float64
	money  bool
	value  func(w2.Row) any
}

var columns = []column{
	{header: "Tax Year", width: 10, value: func(r w2.Row) any { return r.TaxYear }},
	{header: "Employee", width: 28, value: func(r w2.Row) any { return r.EmployeeFirstName + " " + r.EmployeeLastName }},
	{header: "SSN", width: 14, value: func(r w2.Row) any { return r.MaskedSSN() }},
	{header: "Employer", width: 30, value: func(r w2.Row) any { return r.EmployerName }},
	{header: "EIN", width: 12, value: func(r w2.Row) any { return r.EmployerEIN }},
	{header: "Wages", width: 14, money: true, value: func(r w2.Row) any { return r.Wages }},
	{header: "Federal Tax", width: 14, money: true, value: func(r w2.Row) any { return r.FederalIncomeTax }},
	{header: "SS Wages", width: 14, money: true, value: func(r w2.Row) any { return deref(r.SocialSecurityWages) }},
	{header: "SS Tax", width: 14, money: true, value: func(r w2.Row) any { return deref(r.SocialSecurityTax) }},
	{header: "Medicare Wages", width: 14, money: true, value: func(r w2.Row) any { return deref(r.MedicareWages) }},
	{header: "Medicare Tax", width: 14, money: true, value: func(r w2.Row) any { return deref(r.MedicareTax) }},
	{header: "Method", width: 10, value: func(r w2.Row) any { return r.ExtractionMethod }},
	{header: "Confidence", width: 11, value: func(r w2.Row) any { return r.ConfidenceScore }},
	{header: "Source File", width: 60, value: func(r w2.Row) any { return r.SourceFile }},
}

// W2FormsXLSX returns a workbook with one row per stored form, newest first.
// A zero taxYear exports every year.
func (s *Service) W2FormsXLSX(ctx context.Context, taxYear int) ([]byte, error) {
	start := time.Now()

	rows, err := s.forms.List(ctx, repository.ListFilter{TaxYear: taxYear})
	if err != nil {
		return nil, fmt.Errorf("query w2 forms: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	for i, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, c.header)
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, col, col, c.width)
	}

	for r, row := range rows {
		for i, c := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			v := c.value(row)
			if c.money {
				text, _ := v.(string)
				if text == "" {
					continue
				}
				d, err := decimal.NewFromString(text)
				if err != nil {
					return nil, fmt.Errorf("row %d %s: %w", r+1, c.header, err)
				}
				v = d.InexactFloat64()
				_ = f.SetCellStyle(sheetName, cell, cell, moneyStyle)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"tax_year", taxYear,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
