package w2

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneybin/moneybin-w2/internal/common"
)

// sampleText mimics the cropped primary copy of a W-2 as it comes out of pdftotext.
func sampleText(year string) string {
	return strings.Join([]string{
		"Form W-2  Wage and Tax Statement   " + year,
		"a Employee's social security number   077-49-4905",
		"b Employer identification number (EIN)   12-3456789",
		"c Employer's name and address",
		"   Globex Inc",
		"   100 Main Street, Springfield, IL 62701",
		"e Employee's first name and initial    Last name",
		"   Howard Radial",
		"   42 Oak Avenue, Chicago, IL 60601",
		"1 Wages, tips, other comp.   75000.00     2 Federal income tax withheld   12000.00",
		"3 Social security wages      75000.00     4 Social security tax withheld   4650.00",
		"5 Medicare wages and tips    75000.00     6 Medicare tax withheld          1087.50",
		"15 State  Employer's state ID number   16 State wages   17 State income tax",
		"   IL 123456789   75000.00   3712.50",
	}, "\n")
}

func TestParse_FullDocument(t *testing.T) {
	p := NewParser(nil)

	c, err := p.Parse(Input{Text: sampleText("2024"), SourceFile: "/tmp/w2.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 2024, c[FieldTaxYear])
	assert.Equal(t, "077-49-4905", c[FieldEmployeeSSN])
	assert.Equal(t, "12-3456789", c[FieldEmployerEIN])
	assert.Equal(t, "Globex Inc", c[FieldEmployerName])
	assert.Equal(t, "Howard", c[FieldEmployeeFirstName])
	assert.Equal(t, "Radial", c[FieldEmployeeLastName])
	assert.Equal(t, "100 Main Street, Springfield, IL 62701", c[FieldEmployerAddress])
	assert.Equal(t, "42 Oak Avenue, Chicago, IL 60601", c[FieldEmployeeAddress])

	assert.Equal(t, "75000.00", c[FieldWages])
	assert.Equal(t, "12000.00", c[FieldFederalIncomeTax])
	assert.Equal(t, "75000.00", c[FieldSocialSecurityWages])
	assert.Equal(t, "4650.00", c[FieldSocialSecurityTax])
	assert.Equal(t, "75000.00", c[FieldMedicareWages])
	assert.Equal(t, "1087.50", c[FieldMedicareTax])

	states, ok := c[FieldStateLocalInfo].([]StateLocalInfo)
	require.True(t, ok)
	require.Len(t, states, 1)
	assert.Equal(t, "IL", *states[0].State)
	assert.Equal(t, "123456789", *states[0].EmployerStateID)
	assert.True(t, decimal.RequireFromString("75000.00").Equal(*states[0].StateWages))
	assert.True(t, decimal.RequireFromString("3712.50").Equal(*states[0].StateIncomeTax))

	assert.NotContains(t, c, FieldOptionalBoxes)
	assert.Nil(t, c[FieldControlNumber])
	assert.Nil(t, c[FieldAllocatedTips])
	assert.Equal(t, false, c[FieldIsRetirementPlan])
	assert.InDelta(t, 1.0, Score(c), 1e-9)
}

func TestParse_TaxYearStrategies(t *testing.T) {
	noYear := sampleText("")

	tests := []struct {
		name string
		in   Input
		want int
	}{
		{"explicit wins over text", Input{Text: sampleText("2024"), TaxYear: 2022}, 2022},
		{"text", Input{Text: sampleText("2023")}, 2023},
		{"ocr corrected", Input{Text: sampleText("e024")}, 2024},
		{"ocr corrected zero prefix", Input{Text: sampleText("0025")}, 2025},
		{"filename", Input{Text: noYear, SourceFile: "/inbox/W2-2021.pdf"}, 2021},
		{"creation date minus one", Input{Text: noYear, CreationDate: "D:20250131120000Z"}, 2024},
		{"text beats filename", Input{Text: sampleText("2023"), SourceFile: "/inbox/W2-2021.pdf"}, 2023},
	}
	p := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := p.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c[FieldTaxYear])
		})
	}
}

func TestParse_NoTaxYear(t *testing.T) {
	_, err := NewParser(nil).Parse(Input{Text: sampleText(""), SourceFile: "/inbox/w2.pdf"})
	require.Error(t, err)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FieldTaxYear, fe.Field)
	assert.True(t, errors.Is(err, common.ErrExtraction))
}

func TestParse_InsufficientAmounts(t *testing.T) {
	text := "2024 077-49-4905 12-3456789 Howard Radial Wages 75000.00"

	_, err := NewParser(nil).Parse(Input{Text: text})
	require.Error(t, err)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FieldWages, fe.Field)
	assert.Contains(t, err.Error(), "could not extract wage and tax amounts")
}

func TestParse_MissingIdentifiers(t *testing.T) {
	p := NewParser(nil)

	_, err := p.Parse(Input{Text: "2024 Howard Radial 100.00 20.00"})
	assert.ErrorContains(t, err, "could not extract employee SSN")

	_, err = p.Parse(Input{Text: "2024 077-49-4905 Howard Radial 100.00 20.00"})
	assert.ErrorContains(t, err, "could not extract employer EIN")

	_, err = p.Parse(Input{Text: "2024 077-49-4905 12-3456789 globex 100.00 20.00"})
	assert.ErrorContains(t, err, "could not extract employee name")
}

func TestParse_NormalizesIdentifiers(t *testing.T) {
	text := "2024 SSN 077 49 4905 EIN 12 3456789 Howard Radial 100.00 20.00"

	c, err := NewParser(nil).Parse(Input{Text: text})
	require.NoError(t, err)
	assert.Equal(t, "077-49-4905", c[FieldEmployeeSSN])
	assert.Equal(t, "12-3456789", c[FieldEmployerEIN])
}

func TestParse_AmountFallbacks(t *testing.T) {
	text := "2024 077-49-4905 12-3456789 Howard Radial 50000.00 8000.00"

	c, err := NewParser(nil).Parse(Input{Text: text})
	require.NoError(t, err)
	assert.Equal(t, "50000.00", c[FieldSocialSecurityWages])
	assert.Equal(t, "50000.00", c[FieldMedicareWages])
	assert.Nil(t, c[FieldSocialSecurityTax])
	assert.Nil(t, c[FieldMedicareTax])
	assert.Equal(t, UnknownEmployer, c[FieldEmployerName])
	assert.Nil(t, c[FieldEmployerAddress])
	assert.Empty(t, c[FieldStateLocalInfo])
}

func TestParse_EmployeeNameFilters(t *testing.T) {
	tests := []struct {
		name  string
		after string
	}{
		{"company token", "Globex Corp Howard Radial"},
		{"address word", "Harbor Suite Howard Radial"},
		{"city prefix", "San Jose Howard Radial"},
		{"ordinal", "Third Floor Howard Radial"},
		{"direction", "North Dakota Howard Radial"},
	}
	p := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "2024 077-49-4905 12-3456789 " + tt.after + " 100.00 20.00"
			c, err := p.Parse(Input{Text: text})
			require.NoError(t, err)
			assert.Equal(t, "Howard", c[FieldEmployeeFirstName])
			assert.Equal(t, "Radial", c[FieldEmployeeLastName])
		})
	}
}

func TestParse_NameFiltersMatchWholeWords(t *testing.T) {
	text := "2024 077-49-4905 12-3456789 Cody Connor 100.00 20.00"

	c, err := NewParser(nil).Parse(Input{Text: text})
	require.NoError(t, err)
	assert.Equal(t, "Cody", c[FieldEmployeeFirstName])
	assert.Equal(t, "Connor", c[FieldEmployeeLastName])
}

func TestParse_NameOutsideWindow(t *testing.T) {
	text := "2024 077-49-4905 12-3456789 100.00 20.00 " + strings.Repeat("x ", 300) + "Howard Radial"

	_, err := NewParser(nil).Parse(Input{Text: text})
	assert.ErrorContains(t, err, "could not extract employee name")
}

func TestParse_Box12Codes(t *testing.T) {
	text := sampleText("2024") + "\n12a D 5000.00  12b DD 8000.00  12c ZZ 10.00  12d D 5500.00"

	c, err := NewParser(nil).Parse(Input{Text: text})
	require.NoError(t, err)

	boxes, ok := c[FieldOptionalBoxes].(*OptionalBoxes)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"D": "5500.00", "DD": "8000.00"}, boxes.Box12Codes)
}

func TestParse_AddressRules(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		employer any
	}{
		{
			name: "street word inside another word",
			lines: []string{
				"2 Wage and Tax Statement 2024",
				"a 077-49-4905 b 12-3456789",
				"Howard Radial, Springfield, IL 62701",
			},
			employer: nil,
		},
		{
			name: "city on the next line",
			lines: []string{
				"2024 077-49-4905 12-3456789",
				"Globex Inc",
				"100   Main Street",
				"     Springfield, IL 62701",
				"Howard Radial",
			},
			employer: "100 Main Street Springfield, IL 62701",
		},
		{
			name: "abbreviated suffix",
			lines: []string{
				"2024 077-49-4905 12-3456789 Howard Radial",
				"9 Elm St. Suite 4, Dover, DE 19901",
			},
			employer: "9 Elm St. Suite 4, Dover, DE 19901",
		},
	}
	p := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Join(append(tt.lines, "100.00 20.00"), "\n")
			c, err := p.Parse(Input{Text: text})
			require.NoError(t, err)
			assert.Equal(t, tt.employer, c[FieldEmployerAddress])
		})
	}
}

func TestParse_LayoutPaddingDoesNotEatNameWindow(t *testing.T) {
	pad := strings.Repeat(" ", 400)
	text := strings.Join([]string{
		"2024" + pad + "077-49-4905",
		"12-3456789" + pad + "Globex Inc",
		pad + "Howard" + pad + "Radial",
		"75000.00" + pad + "12000.00",
	}, "\n")

	c, err := NewParser(nil).Parse(Input{Text: text})
	require.NoError(t, err)
	assert.Equal(t, "Howard", c[FieldEmployeeFirstName])
	assert.Equal(t, "Radial", c[FieldEmployeeLastName])
}
