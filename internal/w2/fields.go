// Package w2 turns raw IRS Form W-2 text into validated wage and tax records.
//
// The flow is: Parser (text -> Candidate), Score (completeness), AgreementChecker
// (text vs OCR candidate), Arbiter (pick, reject or escalate) and Validator
// (Candidate -> Record with exact decimal money).
package w2

import "strings"

// Canonical candidate field names. They double as JSON keys and DB columns.
const (
	FieldTaxYear               = "tax_year"
	FieldEmployeeSSN           = "employee_ssn"
	FieldEmployeeFirstName     = "employee_first_name"
	FieldEmployeeLastName      = "employee_last_name"
	FieldEmployeeAddress       = "employee_address"
	FieldEmployerEIN           = "employer_ein"
	FieldEmployerName          = "employer_name"
	FieldEmployerAddress       = "employer_address"
	FieldControlNumber         = "control_number"
	FieldWages                 = "wages"
	FieldFederalIncomeTax      = "federal_income_tax"
	FieldSocialSecurityWages   = "social_security_wages"
	FieldSocialSecurityTax     = "social_security_tax"
	FieldMedicareWages         = "medicare_wages"
	FieldMedicareTax           = "medicare_tax"
	FieldSocialSecurityTips    = "social_security_tips"
	FieldAllocatedTips         = "allocated_tips"
	FieldDependentCareBenefits = "dependent_care_benefits"
	FieldNonqualifiedPlans     = "nonqualified_plans"
	FieldIsStatutoryEmployee   = "is_statutory_employee"
	FieldIsRetirementPlan      = "is_retirement_plan"
	FieldIsThirdPartySickPay   = "is_third_party_sick_pay"
	FieldStateLocalInfo        = "state_local_info"
	FieldOptionalBoxes         = "optional_boxes"
)

// UnknownEmployer is used when no employer name can be located.
const UnknownEmployer = "Unknown Employer"

// RequiredFields drive 70% of the confidence score.
var RequiredFields = []string{
	FieldTaxYear,
	FieldEmployeeSSN,
	FieldEmployeeFirstName,
	FieldEmployeeLastName,
	FieldEmployerEIN,
	FieldEmployerName,
	FieldWages,
	FieldFederalIncomeTax,
}

// ImportantFields drive the remaining 30%.
var ImportantFields = []string{
	FieldSocialSecurityWages,
	FieldSocialSecurityTax,
	FieldMedicareWages,
	FieldMedicareTax,
	FieldEmployeeAddress,
	FieldEmployerAddress,
}

// ComparedFields are the key fields cross-checked between text and OCR candidates.
var ComparedFields = []string{
	FieldTaxYear,
	FieldEmployeeSSN,
	FieldEmployerEIN,
	FieldWages,
	FieldFederalIncomeTax,
}

// MoneyFields are coerced to exact decimals by the Validator.
var MoneyFields = []string{
	FieldWages,
	FieldFederalIncomeTax,
	FieldSocialSecurityWages,
	FieldSocialSecurityTax,
	FieldMedicareWages,
	FieldMedicareTax,
	FieldSocialSecurityTips,
	FieldAllocatedTips,
	FieldDependentCareBenefits,
	FieldNonqualifiedPlans,
}

func isMoneyField(field string) bool {
	for _, f := range MoneyFields {
		if f == field {
			return true
		}
	}
	return false
}

// Candidate is a parsed but not yet type-enforced W-2. Values are int (tax year),
// string or nil, bool (box 13), []StateLocalInfo and *OptionalBoxes.
type Candidate map[string]any

// Has reports whether field carries a value. Empty strings and nil are absent;
// numeric zero is present because $0.00 is a legitimate amount.
func (c Candidate) Has(field string) bool {
	v, ok := c[field]
	if !ok || v == nil {
		return false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x) != ""
	case *string:
		return x != nil && strings.TrimSpace(*x) != ""
	case []StateLocalInfo:
		return len(x) > 0
	case *OptionalBoxes:
		return x != nil
	case bool:
		return x
	}
	return true
}

// String returns the string value of field, or "" if absent.
func (c Candidate) String(field string) string {
	switch x := c[field].(type) {
	case string:
		return x
	case *string:
		if x != nil {
			return *x
		}
	}
	return ""
}
