package w2

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	ssnPattern = `^\d{3}-\d{2}-\d{4}$`
	einPattern = `^\d{2}-\d{7}$`
)

// BuildW2JSONSchema returns the structural schema a normalized W-2 document must satisfy.
func BuildW2JSONSchema() map[string]any {
	props := map[string]any{
		FieldTaxYear:           map[string]any{"type": "integer", "minimum": 2000, "maximum": 2100},
		FieldEmployeeSSN:       map[string]any{"type": "string", "pattern": ssnPattern},
		FieldEmployeeFirstName: map[string]any{"type": "string", "minLength": 1},
		FieldEmployeeLastName:  map[string]any{"type": "string", "minLength": 1},
		FieldEmployeeAddress:   nullableString(),
		FieldEmployerEIN:       map[string]any{"type": "string", "pattern": einPattern},
		FieldEmployerName:      map[string]any{"type": "string", "minLength": 1},
		FieldEmployerAddress:   nullableString(),
		FieldControlNumber:     nullableString(),

		FieldWages:                 decimalProp(false),
		FieldFederalIncomeTax:      decimalProp(false),
		FieldSocialSecurityWages:   decimalProp(true),
		FieldSocialSecurityTax:     decimalProp(true),
		FieldMedicareWages:         decimalProp(true),
		FieldMedicareTax:           decimalProp(true),
		FieldSocialSecurityTips:    decimalProp(true),
		FieldAllocatedTips:         decimalProp(true),
		FieldDependentCareBenefits: decimalProp(true),
		FieldNonqualifiedPlans:     decimalProp(true),

		FieldIsStatutoryEmployee: map[string]any{"type": "boolean"},
		FieldIsRetirementPlan:    map[string]any{"type": "boolean"},
		FieldIsThirdPartySickPay: map[string]any{"type": "boolean"},

		FieldStateLocalInfo: map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"state":             map[string]any{"type": "string", "pattern": `^[A-Z]{2}$`},
					"employer_state_id": map[string]any{"type": "string"},
					"state_wages":       decimalProp(false),
					"state_income_tax":  decimalProp(false),
					"local_wages":       decimalProp(false),
					"local_income_tax":  decimalProp(false),
					"locality_name":     map[string]any{"type": "string"},
				},
			},
		},
		FieldOptionalBoxes: map[string]any{
			"type":                 []string{"object", "null"},
			"additionalProperties": false,
			"properties": map[string]any{
				"box_12_codes": map[string]any{
					"type":                 "object",
					"propertyNames":        map[string]any{"pattern": `^[A-Z]{1,2}$`},
					"additionalProperties": decimalProp(false),
				},
				"box_14_other": map[string]any{"type": "string"},
			},
		},
	}
	required := []string{
		FieldTaxYear,
		FieldEmployeeSSN,
		FieldEmployeeFirstName,
		FieldEmployeeLastName,
		FieldEmployerEIN,
		FieldEmployerName,
		FieldWages,
		FieldFederalIncomeTax,
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func decimalProp(nullable bool) map[string]any {
	var typ any = "string"
	if nullable {
		typ = []string{"string", "null"}
	}
	return map[string]any{
		"type":    typ,
		"pattern": `^-?\d+(\.\d{1,2})?$`,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("w2.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("w2.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateJSON checks data against schema.
func validateJSON(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
