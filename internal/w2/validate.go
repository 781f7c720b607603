package w2

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/moneybin/moneybin-w2/internal/common"
)

var (
	ssnFormatRE = regexp.MustCompile(ssnPattern)
	einFormatRE = regexp.MustCompile(einPattern)

	w2SchemaOnce sync.Once
	w2Schema     *jsonschema.Schema
	w2SchemaErr  error
)

func loadW2Schema() (*jsonschema.Schema, error) {
	w2SchemaOnce.Do(func() {
		w2Schema, w2SchemaErr = compileSchema(BuildW2JSONSchema())
	})
	return w2Schema, w2SchemaErr
}

// Validate coerces an accepted candidate into a Record. Money becomes exact
// decimals, the tax year is bounded and required fields are re-checked; the
// normalized document is then checked against BuildW2JSONSchema. Failures are
// SCHEMA_INVALID AppErrors wrapping common.ErrValidation.
func Validate(c Candidate) (*Record, error) {
	v := common.NewValidator()
	rec := &Record{}

	rec.TaxYear = coerceYear(v, c[FieldTaxYear])
	v.Field(FieldTaxYear, rec.TaxYear, common.IntRange(2000, 2100))

	rec.EmployeeSSN = c.String(FieldEmployeeSSN)
	rec.EmployeeFirstName = strings.TrimSpace(c.String(FieldEmployeeFirstName))
	rec.EmployeeLastName = strings.TrimSpace(c.String(FieldEmployeeLastName))
	rec.EmployerEIN = c.String(FieldEmployerEIN)
	rec.EmployerName = strings.TrimSpace(c.String(FieldEmployerName))
	rec.EmployeeAddress = optionalString(c, FieldEmployeeAddress)
	rec.EmployerAddress = optionalString(c, FieldEmployerAddress)
	rec.ControlNumber = optionalString(c, FieldControlNumber)

	v.Field(FieldEmployeeSSN, rec.EmployeeSSN, common.Required, common.Matches(ssnFormatRE, "formatted as NNN-NN-NNNN")).
		Field(FieldEmployerEIN, rec.EmployerEIN, common.Required, common.Matches(einFormatRE, "formatted as NN-NNNNNNN")).
		Field(FieldEmployeeFirstName, rec.EmployeeFirstName, common.Required).
		Field(FieldEmployeeLastName, rec.EmployeeLastName, common.Required).
		Field(FieldEmployerName, rec.EmployerName, common.Required)

	money := map[string]*decimal.NullDecimal{
		FieldSocialSecurityWages:   &rec.SocialSecurityWages,
		FieldSocialSecurityTax:     &rec.SocialSecurityTax,
		FieldMedicareWages:         &rec.MedicareWages,
		FieldMedicareTax:           &rec.MedicareTax,
		FieldSocialSecurityTips:    &rec.SocialSecurityTips,
		FieldAllocatedTips:         &rec.AllocatedTips,
		FieldDependentCareBenefits: &rec.DependentCareBenefits,
		FieldNonqualifiedPlans:     &rec.NonqualifiedPlans,
	}
	var wages, fedTax decimal.NullDecimal
	money[FieldWages] = &wages
	money[FieldFederalIncomeTax] = &fedTax
	for _, f := range MoneyFields {
		d, err := ToDecimal(c[f])
		if err != nil {
			v.Add(f, c[f], err.Error())
			continue
		}
		*money[f] = d
	}
	if !wages.Valid {
		v.Add(FieldWages, c[FieldWages], "is required")
	}
	if !fedTax.Valid {
		v.Add(FieldFederalIncomeTax, c[FieldFederalIncomeTax], "is required")
	}
	rec.Wages = wages.Decimal
	rec.FederalIncomeTax = fedTax.Decimal

	rec.IsStatutoryEmployee, _ = c[FieldIsStatutoryEmployee].(bool)
	rec.IsRetirementPlan, _ = c[FieldIsRetirementPlan].(bool)
	rec.IsThirdPartySickPay, _ = c[FieldIsThirdPartySickPay].(bool)

	switch x := c[FieldStateLocalInfo].(type) {
	case nil:
	case []StateLocalInfo:
		rec.StateLocalInfo = x
	default:
		v.Add(FieldStateLocalInfo, x, "must be a list of state/local entries")
	}
	if rec.StateLocalInfo == nil {
		rec.StateLocalInfo = []StateLocalInfo{}
	}
	switch x := c[FieldOptionalBoxes].(type) {
	case nil:
	case *OptionalBoxes:
		rec.OptionalBoxes = x
	case OptionalBoxes:
		rec.OptionalBoxes = &x
	default:
		v.Add(FieldOptionalBoxes, x, "must be optional boxes")
	}

	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	if err := checkSchema(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func checkSchema(rec *Record) error {
	schema, err := loadW2Schema()
	if err != nil {
		return common.NewAppError(common.CodeSchemaInvalid, "w2 schema unavailable", errors.Join(common.ErrInternal, err))
	}
	data, err := json.Marshal(schemaDocument(rec))
	if err != nil {
		return common.NewAppError(common.CodeSchemaInvalid, "marshal w2 document", errors.Join(common.ErrValidation, err))
	}
	if err := validateJSON(schema, data); err != nil {
		return common.NewAppError(common.CodeSchemaInvalid, "w2 document rejected", errors.Join(common.ErrValidation, err))
	}
	return nil
}

// schemaDocument renders the wage fields of rec as the closed JSON shape of BuildW2JSONSchema.
func schemaDocument(rec *Record) map[string]any {
	doc := map[string]any{
		FieldTaxYear:             rec.TaxYear,
		FieldEmployeeSSN:         rec.EmployeeSSN,
		FieldEmployeeFirstName:   rec.EmployeeFirstName,
		FieldEmployeeLastName:    rec.EmployeeLastName,
		FieldEmployeeAddress:     rec.EmployeeAddress,
		FieldEmployerEIN:         rec.EmployerEIN,
		FieldEmployerName:        rec.EmployerName,
		FieldEmployerAddress:     rec.EmployerAddress,
		FieldControlNumber:       rec.ControlNumber,
		FieldWages:               rec.Wages.String(),
		FieldFederalIncomeTax:    rec.FederalIncomeTax.String(),
		FieldIsStatutoryEmployee: rec.IsStatutoryEmployee,
		FieldIsRetirementPlan:    rec.IsRetirementPlan,
		FieldIsThirdPartySickPay: rec.IsThirdPartySickPay,
		FieldStateLocalInfo:      rec.StateLocalInfo,
		FieldOptionalBoxes:       rec.OptionalBoxes,
	}
	for f, d := range map[string]decimal.NullDecimal{
		FieldSocialSecurityWages:   rec.SocialSecurityWages,
		FieldSocialSecurityTax:     rec.SocialSecurityTax,
		FieldMedicareWages:         rec.MedicareWages,
		FieldMedicareTax:           rec.MedicareTax,
		FieldSocialSecurityTips:    rec.SocialSecurityTips,
		FieldAllocatedTips:         rec.AllocatedTips,
		FieldDependentCareBenefits: rec.DependentCareBenefits,
		FieldNonqualifiedPlans:     rec.NonqualifiedPlans,
	} {
		if d.Valid {
			doc[f] = d.Decimal.String()
		} else {
			doc[f] = nil
		}
	}
	return doc
}

// ToDecimal converts a raw money value to an exact decimal. Nil and empty
// strings are null; floats go through their shortest decimal representation.
func ToDecimal(v any) (decimal.NullDecimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := parseMoney(x)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("not a decimal amount: %q", x)
		}
		return decimal.NewNullDecimal(d), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}, fmt.Errorf("not a finite amount: %v", x)
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(x)), nil
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.NullDecimal{}, fmt.Errorf("not a finite amount: %v", x)
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat32(x)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(x))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x)), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("not a decimal amount: %q", x.String())
		}
		return decimal.NewNullDecimal(d), nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(x), nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NewNullDecimal(*x), nil
	case decimal.NullDecimal:
		return x, nil
	}
	return decimal.NullDecimal{}, fmt.Errorf("unsupported amount type %T", v)
}

func coerceYear(v *common.Validator, raw any) int {
	switch x := raw.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		if x == math.Trunc(x) {
			return int(x)
		}
	case json.Number:
		if n, err := strconv.Atoi(x.String()); err == nil {
			return n
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	case nil:
		v.Add(FieldTaxYear, raw, "is required")
		return 0
	}
	v.Add(FieldTaxYear, raw, "must be an integer year")
	return 0
}

func optionalString(c Candidate, field string) *string {
	if !c.Has(field) {
		return nil
	}
	s := strings.TrimSpace(c.String(field))
	if s == "" {
		return nil
	}
	return &s
}
