package w2

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneybin/moneybin-w2/constants"
	"github.com/moneybin/moneybin-w2/internal/common"
)

// StateLocalInfo is one row of boxes 15-20. Nil members are omitted when serialized.
type StateLocalInfo struct {
	State           *string          `json:"state,omitempty"`
	EmployerStateID *string          `json:"employer_state_id,omitempty"`
	StateWages      *decimal.Decimal `json:"state_wages,omitempty"`
	StateIncomeTax  *decimal.Decimal `json:"state_income_tax,omitempty"`
	LocalWages      *decimal.Decimal `json:"local_wages,omitempty"`
	LocalIncomeTax  *decimal.Decimal `json:"local_income_tax,omitempty"`
	LocalityName    *string          `json:"locality_name,omitempty"`
}

// OptionalBoxes holds box 12 codes (code -> amount) and box 14 free text.
type OptionalBoxes struct {
	Box12Codes map[string]string `json:"box_12_codes,omitempty"`
	Box14Other *string           `json:"box_14_other,omitempty"`
}

// Record is a validated W-2. Money is always an exact decimal.
type Record struct {
	TaxYear           int     `json:"tax_year"`
	EmployeeSSN       string  `json:"employee_ssn"`
	EmployeeFirstName string  `json:"employee_first_name"`
	EmployeeLastName  string  `json:"employee_last_name"`
	EmployeeAddress   *string `json:"employee_address"`
	EmployerEIN       string  `json:"employer_ein"`
	EmployerName      string  `json:"employer_name"`
	EmployerAddress   *string `json:"employer_address"`
	ControlNumber     *string `json:"control_number"`

	Wages                 decimal.Decimal     `json:"wages"`
	FederalIncomeTax      decimal.Decimal     `json:"federal_income_tax"`
	SocialSecurityWages   decimal.NullDecimal `json:"social_security_wages"`
	SocialSecurityTax     decimal.NullDecimal `json:"social_security_tax"`
	MedicareWages         decimal.NullDecimal `json:"medicare_wages"`
	MedicareTax           decimal.NullDecimal `json:"medicare_tax"`
	SocialSecurityTips    decimal.NullDecimal `json:"social_security_tips"`
	AllocatedTips         decimal.NullDecimal `json:"allocated_tips"`
	DependentCareBenefits decimal.NullDecimal `json:"dependent_care_benefits"`
	NonqualifiedPlans     decimal.NullDecimal `json:"nonqualified_plans"`

	IsStatutoryEmployee bool `json:"is_statutory_employee"`
	IsRetirementPlan    bool `json:"is_retirement_plan"`
	IsThirdPartySickPay bool `json:"is_third_party_sick_pay"`

	StateLocalInfo []StateLocalInfo `json:"state_local_info"`
	OptionalBoxes  *OptionalBoxes   `json:"optional_boxes"`

	// Provenance, filled in by the extraction service.
	ExtractionID     uuid.UUID        `json:"extraction_id"`
	ExtractionMethod constants.Method `json:"extraction_method"`
	ConfidenceScore  float64          `json:"confidence_score"`
	Agreement        *float64         `json:"agreement,omitempty"`
	SourceFile       string           `json:"source_file"`
	ExtractedAt      time.Time        `json:"extracted_at"`
}

// FieldError reports a required field the parser could not locate.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return common.ErrExtraction
}

func strPtr(s string) *string {
	return &s
}
