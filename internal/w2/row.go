package w2

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneybin/moneybin-w2/constants"
)

// Row is the single-row tabular form of a Record. Money is fixed two-place
// text and nested fields are JSON text.
type Row struct {
	ExtractionID      string  `json:"extraction_id" yaml:"extraction_id"`
	TaxYear           int     `json:"tax_year" yaml:"tax_year"`
	EmployeeSSN       string  `json:"employee_ssn" yaml:"employee_ssn"`
	EmployeeFirstName string  `json:"employee_first_name" yaml:"employee_first_name"`
	EmployeeLastName  string  `json:"employee_last_name" yaml:"employee_last_name"`
	EmployeeAddress   *string `json:"employee_address" yaml:"employee_address"`
	EmployerEIN       string  `json:"employer_ein" yaml:"employer_ein"`
	EmployerName      string  `json:"employer_name" yaml:"employer_name"`
	EmployerAddress   *string `json:"employer_address" yaml:"employer_address"`
	ControlNumber     *string `json:"control_number" yaml:"control_number"`

	Wages                 string  `json:"wages" yaml:"wages"`
	FederalIncomeTax      string  `json:"federal_income_tax" yaml:"federal_income_tax"`
	SocialSecurityWages   *string `json:"social_security_wages" yaml:"social_security_wages"`
	SocialSecurityTax     *string `json:"social_security_tax" yaml:"social_security_tax"`
	MedicareWages         *string `json:"medicare_wages" yaml:"medicare_wages"`
	MedicareTax           *string `json:"medicare_tax" yaml:"medicare_tax"`
	SocialSecurityTips    *string `json:"social_security_tips" yaml:"social_security_tips"`
	AllocatedTips         *string `json:"allocated_tips" yaml:"allocated_tips"`
	DependentCareBenefits *string `json:"dependent_care_benefits" yaml:"dependent_care_benefits"`
	NonqualifiedPlans     *string `json:"nonqualified_plans" yaml:"nonqualified_plans"`

	IsStatutoryEmployee bool `json:"is_statutory_employee" yaml:"is_statutory_employee"`
	IsRetirementPlan    bool `json:"is_retirement_plan" yaml:"is_retirement_plan"`
	IsThirdPartySickPay bool `json:"is_third_party_sick_pay" yaml:"is_third_party_sick_pay"`

	StateLocalInfo *string `json:"state_local_info" yaml:"state_local_info"`
	OptionalBoxes  *string `json:"optional_boxes" yaml:"optional_boxes"`

	ExtractionMethod string   `json:"extraction_method" yaml:"extraction_method"`
	ConfidenceScore  float64  `json:"confidence_score" yaml:"confidence_score"`
	Agreement        *float64 `json:"agreement" yaml:"agreement"`
	SourceFile       string   `json:"source_file" yaml:"source_file"`
	ExtractedAt      string   `json:"extracted_at" yaml:"extracted_at"`
}

// RowFromRecord flattens rec.
func RowFromRecord(rec *Record) (Row, error) {
	row := Row{
		TaxYear:           rec.TaxYear,
		EmployeeSSN:       rec.EmployeeSSN,
		EmployeeFirstName: rec.EmployeeFirstName,
		EmployeeLastName:  rec.EmployeeLastName,
		EmployeeAddress:   rec.EmployeeAddress,
		EmployerEIN:       rec.EmployerEIN,
		EmployerName:      rec.EmployerName,
		EmployerAddress:   rec.EmployerAddress,
		ControlNumber:     rec.ControlNumber,

		Wages:                 rec.Wages.StringFixed(2),
		FederalIncomeTax:      rec.FederalIncomeTax.StringFixed(2),
		SocialSecurityWages:   fixed(rec.SocialSecurityWages),
		SocialSecurityTax:     fixed(rec.SocialSecurityTax),
		MedicareWages:         fixed(rec.MedicareWages),
		MedicareTax:           fixed(rec.MedicareTax),
		SocialSecurityTips:    fixed(rec.SocialSecurityTips),
		AllocatedTips:         fixed(rec.AllocatedTips),
		DependentCareBenefits: fixed(rec.DependentCareBenefits),
		NonqualifiedPlans:     fixed(rec.NonqualifiedPlans),

		IsStatutoryEmployee: rec.IsStatutoryEmployee,
		IsRetirementPlan:    rec.IsRetirementPlan,
		IsThirdPartySickPay: rec.IsThirdPartySickPay,

		ExtractionMethod: rec.ExtractionMethod.String(),
		ConfidenceScore:  rec.ConfidenceScore,
		Agreement:        rec.Agreement,
		SourceFile:       rec.SourceFile,
	}
	if rec.ExtractionID != uuid.Nil {
		row.ExtractionID = rec.ExtractionID.String()
	}
	if !rec.ExtractedAt.IsZero() {
		row.ExtractedAt = rec.ExtractedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(rec.StateLocalInfo) > 0 {
		b, err := json.Marshal(rec.StateLocalInfo)
		if err != nil {
			return Row{}, fmt.Errorf("marshal state_local_info: %w", err)
		}
		row.StateLocalInfo = strPtr(string(b))
	}
	if rec.OptionalBoxes != nil {
		b, err := json.Marshal(rec.OptionalBoxes)
		if err != nil {
			return Row{}, fmt.Errorf("marshal optional_boxes: %w", err)
		}
		row.OptionalBoxes = strPtr(string(b))
	}
	return row, nil
}

// Record rebuilds the Record a row was flattened from.
func (row Row) Record() (*Record, error) {
	rec := &Record{
		TaxYear:           row.TaxYear,
		EmployeeSSN:       row.EmployeeSSN,
		EmployeeFirstName: row.EmployeeFirstName,
		EmployeeLastName:  row.EmployeeLastName,
		EmployeeAddress:   row.EmployeeAddress,
		EmployerEIN:       row.EmployerEIN,
		EmployerName:      row.EmployerName,
		EmployerAddress:   row.EmployerAddress,
		ControlNumber:     row.ControlNumber,

		IsStatutoryEmployee: row.IsStatutoryEmployee,
		IsRetirementPlan:    row.IsRetirementPlan,
		IsThirdPartySickPay: row.IsThirdPartySickPay,

		ExtractionMethod: constants.Method(row.ExtractionMethod),
		ConfidenceScore:  row.ConfidenceScore,
		Agreement:        row.Agreement,
		SourceFile:       row.SourceFile,
		StateLocalInfo:   []StateLocalInfo{},
	}
	var err error
	if rec.Wages, err = decimal.NewFromString(row.Wages); err != nil {
		return nil, fmt.Errorf("parse wages: %w", err)
	}
	if rec.FederalIncomeTax, err = decimal.NewFromString(row.FederalIncomeTax); err != nil {
		return nil, fmt.Errorf("parse federal_income_tax: %w", err)
	}
	optional := []struct {
		name string
		src  *string
		dst  *decimal.NullDecimal
	}{
		{FieldSocialSecurityWages, row.SocialSecurityWages, &rec.SocialSecurityWages},
		{FieldSocialSecurityTax, row.SocialSecurityTax, &rec.SocialSecurityTax},
		{FieldMedicareWages, row.MedicareWages, &rec.MedicareWages},
		{FieldMedicareTax, row.MedicareTax, &rec.MedicareTax},
		{FieldSocialSecurityTips, row.SocialSecurityTips, &rec.SocialSecurityTips},
		{FieldAllocatedTips, row.AllocatedTips, &rec.AllocatedTips},
		{FieldDependentCareBenefits, row.DependentCareBenefits, &rec.DependentCareBenefits},
		{FieldNonqualifiedPlans, row.NonqualifiedPlans, &rec.NonqualifiedPlans},
	}
	for _, o := range optional {
		if o.src == nil {
			continue
		}
		d, err := decimal.NewFromString(*o.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", o.name, err)
		}
		*o.dst = decimal.NewNullDecimal(d)
	}
	if row.ExtractionID != "" {
		if rec.ExtractionID, err = uuid.Parse(row.ExtractionID); err != nil {
			return nil, fmt.Errorf("parse extraction_id: %w", err)
		}
	}
	if row.ExtractedAt != "" {
		if rec.ExtractedAt, err = time.Parse(time.RFC3339Nano, row.ExtractedAt); err != nil {
			return nil, fmt.Errorf("parse extracted_at: %w", err)
		}
	}
	if row.StateLocalInfo != nil {
		if err := json.Unmarshal([]byte(*row.StateLocalInfo), &rec.StateLocalInfo); err != nil {
			return nil, fmt.Errorf("parse state_local_info: %w", err)
		}
	}
	if row.OptionalBoxes != nil {
		rec.OptionalBoxes = &OptionalBoxes{}
		if err := json.Unmarshal([]byte(*row.OptionalBoxes), rec.OptionalBoxes); err != nil {
			return nil, fmt.Errorf("parse optional_boxes: %w", err)
		}
	}
	return rec, nil
}

// MaskedSSN hides all but the last four digits.
func (row Row) MaskedSSN() string {
	if len(row.EmployeeSSN) < 4 {
		return row.EmployeeSSN
	}
	return "***-**-" + row.EmployeeSSN[len(row.EmployeeSSN)-4:]
}

func fixed(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	return strPtr(d.Decimal.StringFixed(2))
}
