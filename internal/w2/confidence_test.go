package w2

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fullCandidate() Candidate {
	return Candidate{
		FieldTaxYear:             2024,
		FieldEmployeeSSN:         "123-45-6789",
		FieldEmployeeFirstName:   "Howard",
		FieldEmployeeLastName:    "Radial",
		FieldEmployerEIN:         "12-3456789",
		FieldEmployerName:        "Globex Inc",
		FieldWages:               "100000.00",
		FieldFederalIncomeTax:    "20000.00",
		FieldSocialSecurityWages: "100000.00",
		FieldSocialSecurityTax:   "6200.00",
		FieldMedicareWages:       "100000.00",
		FieldMedicareTax:         "1450.00",
		FieldEmployeeAddress:     "42 Oak Avenue, Chicago, IL 60601",
		FieldEmployerAddress:     "100 Main Street, Springfield, IL 62701",
	}
}

func TestScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil))
	assert.Equal(t, 0.0, Score(Candidate{}))
	assert.Equal(t, 1.0, Score(fullCandidate()))

	c := fullCandidate()
	c["unrelated"] = "x"
	assert.Equal(t, 1.0, Score(c))
}

func TestScore_Weights(t *testing.T) {
	c := Candidate{}
	for _, f := range RequiredFields {
		c[f] = fullCandidate()[f]
	}
	assert.InDelta(t, 0.7, Score(c), 1e-9)

	delete(c, FieldWages)
	assert.InDelta(t, 0.7*7/8, Score(c), 1e-9)

	c = Candidate{FieldMedicareTax: "1.00", FieldEmployerAddress: "1 Main St, Springfield, IL 62701"}
	assert.InDelta(t, 0.3*2/6, Score(c), 1e-9)
}

func TestScore_Monotonic(t *testing.T) {
	full := fullCandidate()
	fields := append(append([]string{}, RequiredFields...), ImportantFields...)

	smaller := Candidate{}
	for k, v := range full {
		smaller[k] = v
	}
	prev := Score(smaller)
	for _, f := range fields {
		delete(smaller, f)
		next := Score(smaller)
		assert.LessOrEqual(t, next, prev, "dropping %s", f)
		prev = next
	}
	assert.Equal(t, 0.0, prev)
}

// Zero amounts are legitimate values and count as present; only nil and blank strings are absent.
func TestScore_ZeroIsPresent(t *testing.T) {
	c := fullCandidate()
	c[FieldFederalIncomeTax] = 0
	c[FieldSocialSecurityTax] = decimal.Zero
	c[FieldMedicareTax] = 0.0
	assert.Equal(t, 1.0, Score(c))

	c[FieldFederalIncomeTax] = nil
	c[FieldEmployerAddress] = "   "
	assert.InDelta(t, 0.7*7/8+0.3*5/6, Score(c), 1e-9)
}
