package w2

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Field patterns stay on one line unless noted; Parse keeps line breaks and
// only collapses horizontal whitespace.
var (
	ssnRE          = regexp.MustCompile(`\b(\d{3}[- ]?\d{2}[- ]?\d{4})\b`)
	einRE          = regexp.MustCompile(`\b(\d{2}[- ]?\d{7})\b`)
	amountRE       = regexp.MustCompile(`\b\d{1,7}\.\d{2}\b`)
	employerNameRE = regexp.MustCompile(`([A-Z][A-Za-z ,\.]+(?:Inc|LLC|Corp|Corporation|Company|Co)\b\.?)`)
	// the city/state/ZIP part may sit on the line after the street
	addressRE    = regexp.MustCompile(`(\d+ +[A-Za-z ]+\b(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr|Court|Ct|Lane|Ln|Way|Boulevard|Blvd)\b\.?[^,\n]*,? *\n? *(?:[A-Za-z ]+, *)?[A-Z]{2} +\d{5})`)
	personNameRE = regexp.MustCompile(`\b([A-Z][a-z]+) +([A-Z][a-z]+)\b`)
	stateRowRE   = regexp.MustCompile(`\b([A-Z]{2}) +([A-Z0-9]+) +(\d+\.\d{2}) +(\d+\.\d{2})\b`)
	box12RE      = regexp.MustCompile(`\b([A-Z]{1,2}) +(\d+\.\d{2})\b`)
	nonDigitRE   = regexp.MustCompile(`\D`)
)

// employeeNameWindow bounds how far past the SSN the employee name is searched for.
const employeeNameWindow = 500

var (
	companyTokens = setOf("Inc", "LLC", "Corp", "Corporation", "Company", "Co")
	addressWords  = setOf("Street", "Avenue", "Road", "Drive", "Court", "Lane", "Way", "Boulevard", "Floor", "Suite", "Building")
	leadingNoise  = setOf(
		"San", "Los", "New", "Fort", "Port", "Saint", "Santa",
		"First", "Second", "Third", "Fourth", "Fifth", "Sixth", "Seventh", "Eighth", "Ninth", "Tenth",
		"North", "South", "East", "West",
	)
	box12Pairs = setOf("DD", "EE", "FF", "GG", "HH")
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Input is the raw material for one parse.
type Input struct {
	Text         string
	SourceFile   string
	TaxYear      int    // 0 when the caller does not know it
	CreationDate string // PDF CreationDate, e.g. "D:20250115093000Z"
}

type parseState struct {
	in     Input
	text   string
	out    Candidate
	ssnPos int
}

type rule struct {
	name  string
	apply func(p *Parser, s *parseState) error
}

// Parser converts W-2 text into a Candidate by running a fixed list of
// field-group rules. It never mixes evidence between two documents.
type Parser struct {
	logger *slog.Logger
	rules  []rule
}

// NewParser builds a Parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger,
		rules: []rule{
			{"tax_year", (*Parser).parseTaxYear},
			{"employee_ssn", (*Parser).parseSSN},
			{"employer_ein", (*Parser).parseEIN},
			{"amounts", (*Parser).parseAmounts},
			{"employer_name", (*Parser).parseEmployerName},
			{"addresses", (*Parser).parseAddresses},
			{"employee_name", (*Parser).parseEmployeeName},
			{"state_local_info", (*Parser).parseStateLocal},
			{"box_12", (*Parser).parseBox12},
			{"defaults", (*Parser).applyDefaults},
		},
	}
}

// Parse extracts a Candidate from in. It fails with a *FieldError when a
// required field cannot be found.
func (p *Parser) Parse(in Input) (Candidate, error) {
	s := &parseState{
		in:   in,
		text: normalizeLines(in.Text),
		out:  Candidate{},
	}
	for _, r := range p.rules {
		if err := r.apply(p, s); err != nil {
			p.logger.Debug("parse rule failed", "rule", r.name, "file", in.SourceFile, "error", err)
			return nil, err
		}
	}
	return s.out, nil
}

// normalizeLines collapses runs of spaces and tabs (pdftotext -layout pads
// columns heavily) and drops blank lines. Line breaks survive.
func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if f := strings.Fields(ln); len(f) > 0 {
			out = append(out, strings.Join(f, " "))
		}
	}
	return strings.Join(out, "\n")
}

func (p *Parser) parseTaxYear(s *parseState) error {
	for _, st := range TaxYearStrategies {
		if year, ok := st.Resolve(s.in, s.text); ok {
			p.logger.Debug("tax year resolved", "strategy", st.Name, "tax_year", year)
			s.out[FieldTaxYear] = year
			return nil
		}
	}
	return &FieldError{Field: FieldTaxYear, Reason: "could not determine tax year from text, filename, or metadata"}
}

func (p *Parser) parseSSN(s *parseState) error {
	loc := ssnRE.FindStringSubmatchIndex(s.text)
	if loc == nil {
		return &FieldError{Field: FieldEmployeeSSN, Reason: "could not extract employee SSN"}
	}
	digits := nonDigitRE.ReplaceAllString(s.text[loc[2]:loc[3]], "")
	s.out[FieldEmployeeSSN] = fmt.Sprintf("%s-%s-%s", digits[:3], digits[3:5], digits[5:])
	s.ssnPos = loc[0]
	return nil
}

func (p *Parser) parseEIN(s *parseState) error {
	m := einRE.FindStringSubmatch(s.text)
	if m == nil {
		return &FieldError{Field: FieldEmployerEIN, Reason: "could not extract employer EIN"}
	}
	digits := nonDigitRE.ReplaceAllString(m[1], "")
	s.out[FieldEmployerEIN] = fmt.Sprintf("%s-%s", digits[:2], digits[2:])
	return nil
}

// parseAmounts assigns boxes 1-6 by position. Boxes 3 and 5 fall back to box 1.
func (p *Parser) parseAmounts(s *parseState) error {
	amounts := amountRE.FindAllString(s.text, -1)
	if len(amounts) < 2 {
		return &FieldError{Field: FieldWages, Reason: "could not extract wage and tax amounts"}
	}
	at := func(i int, fallback any) any {
		if i < len(amounts) {
			return amounts[i]
		}
		return fallback
	}
	s.out[FieldWages] = amounts[0]
	s.out[FieldFederalIncomeTax] = amounts[1]
	s.out[FieldSocialSecurityWages] = at(2, amounts[0])
	s.out[FieldSocialSecurityTax] = at(3, nil)
	s.out[FieldMedicareWages] = at(4, amounts[0])
	s.out[FieldMedicareTax] = at(5, nil)
	return nil
}

func (p *Parser) parseEmployerName(s *parseState) error {
	name := UnknownEmployer
	if m := employerNameRE.FindStringSubmatch(s.text); m != nil {
		name = strings.TrimSpace(m[1])
	}
	s.out[FieldEmployerName] = name
	return nil
}

// parseAddresses takes the first street address as the employer's and the second as the employee's.
func (p *Parser) parseAddresses(s *parseState) error {
	found := addressRE.FindAllString(s.text, 2)
	s.out[FieldEmployerAddress] = nil
	s.out[FieldEmployeeAddress] = nil
	if len(found) > 0 {
		s.out[FieldEmployerAddress] = oneLine(found[0])
	}
	if len(found) > 1 {
		s.out[FieldEmployeeAddress] = oneLine(found[1])
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (p *Parser) parseEmployeeName(s *parseState) error {
	end := s.ssnPos + employeeNameWindow
	if end > len(s.text) {
		end = len(s.text)
	}
	for _, m := range personNameRE.FindAllStringSubmatch(s.text[s.ssnPos:end], -1) {
		first, last := m[1], m[2]
		if !plausiblePersonName(first, last) {
			continue
		}
		s.out[FieldEmployeeFirstName] = first
		s.out[FieldEmployeeLastName] = last
		return nil
	}
	return &FieldError{Field: FieldEmployeeFirstName, Reason: "could not extract employee name"}
}

func plausiblePersonName(first, last string) bool {
	for _, w := range []string{first, last} {
		if _, ok := companyTokens[w]; ok {
			return false
		}
		if _, ok := addressWords[w]; ok {
			return false
		}
	}
	_, noisy := leadingNoise[first]
	return !noisy
}

// parseStateLocal reads at most one "ST ID wages tax" row.
func (p *Parser) parseStateLocal(s *parseState) error {
	entries := []StateLocalInfo{}
	if m := stateRowRE.FindStringSubmatch(s.text); m != nil {
		wages := decimal.RequireFromString(m[3])
		tax := decimal.RequireFromString(m[4])
		entries = append(entries, StateLocalInfo{
			State:           strPtr(m[1]),
			EmployerStateID: strPtr(m[2]),
			StateWages:      &wages,
			StateIncomeTax:  &tax,
		})
	}
	s.out[FieldStateLocalInfo] = entries
	return nil
}

// parseBox12 keeps single-letter codes and the two-letter DD..HH codes. A later
// occurrence of a code replaces an earlier one.
func (p *Parser) parseBox12(s *parseState) error {
	codes := map[string]string{}
	for _, m := range box12RE.FindAllStringSubmatch(s.text, -1) {
		code, amount := m[1], m[2]
		if _, ok := box12Pairs[code]; len(code) == 1 || ok {
			codes[code] = amount
		}
	}
	if len(codes) > 0 {
		s.out[FieldOptionalBoxes] = &OptionalBoxes{Box12Codes: codes}
	}
	return nil
}

func (p *Parser) applyDefaults(s *parseState) error {
	for _, f := range []string{
		FieldControlNumber,
		FieldSocialSecurityTips,
		FieldAllocatedTips,
		FieldDependentCareBenefits,
		FieldNonqualifiedPlans,
	} {
		if _, ok := s.out[f]; !ok {
			s.out[f] = nil
		}
	}
	for _, f := range []string{FieldIsStatutoryEmployee, FieldIsRetirementPlan, FieldIsThirdPartySickPay} {
		if _, ok := s.out[f]; !ok {
			s.out[f] = false
		}
	}
	return nil
}
