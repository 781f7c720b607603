package w2

import (
	"path/filepath"
	"regexp"
	"strconv"
)

var (
	yearRE         = regexp.MustCompile(`\b(202[0-9]|203[0-9])\b`)
	ocrYearRE      = regexp.MustCompile(`\b[eEoO0]0(2[0-9]|3[0-9])\b`)
	creationYearRE = regexp.MustCompile(`^\s*(?:D:)?(\d{4})`)
)

// TaxYearStrategy resolves the tax year from one kind of evidence.
type TaxYearStrategy struct {
	Name    string
	Resolve func(in Input, text string) (int, bool)
}

// TaxYearStrategies are tried in order; the first hit wins.
var TaxYearStrategies = []TaxYearStrategy{
	{Name: "explicit", Resolve: explicitYear},
	{Name: "text", Resolve: textYear},
	{Name: "ocr_corrected", Resolve: ocrCorrectedYear},
	{Name: "filename", Resolve: filenameYear},
	{Name: "creation_date", Resolve: creationDateYear},
}

func explicitYear(in Input, _ string) (int, bool) {
	return in.TaxYear, in.TaxYear > 0
}

func textYear(_ Input, text string) (int, bool) {
	return firstYear(yearRE, text)
}

// ocrCorrectedYear handles OCR misreading the leading "2" as e/E/o/O/0.
func ocrCorrectedYear(_ Input, text string) (int, bool) {
	m := ocrYearRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi("20" + m[1])
	return n, err == nil
}

func filenameYear(in Input, _ string) (int, bool) {
	if in.SourceFile == "" {
		return 0, false
	}
	return firstYear(yearRE, filepath.Base(in.SourceFile))
}

// creationDateYear assumes a W-2 is issued the year after the tax year it covers.
func creationDateYear(in Input, _ string) (int, bool) {
	m := creationYearRE.FindStringSubmatch(in.CreationDate)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 1 {
		return 0, false
	}
	return n - 1, true
}

func firstYear(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}
