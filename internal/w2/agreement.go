package w2

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultAgreementTolerance is the relative difference under which two amounts earn partial credit.
const DefaultAgreementTolerance = 0.05

// AgreementChecker compares the key fields of two candidates.
type AgreementChecker struct {
	Tolerance float64
}

// NewAgreementChecker returns a checker; a non-positive tolerance means the default.
func NewAgreementChecker(tolerance float64) AgreementChecker {
	if tolerance <= 0 {
		tolerance = DefaultAgreementTolerance
	}
	return AgreementChecker{Tolerance: tolerance}
}

// Agreement returns the share of comparable key fields on which a and b agree.
// Exact matches score 1, numbers within tolerance score 0.5. A field is only
// comparable when both sides carry a value; with nothing comparable the result is 0.
func (ac AgreementChecker) Agreement(a, b Candidate) float64 {
	tol := decimal.NewFromFloat(ac.Tolerance)
	var total, compared float64
	for _, f := range ComparedFields {
		va, vb := a[f], b[f]
		if va == nil || vb == nil {
			continue
		}
		compared++
		total += fieldCredit(f, va, vb, tol)
	}
	if compared == 0 {
		return 0
	}
	return total / compared
}

func fieldCredit(field string, a, b any, tol decimal.Decimal) float64 {
	da, okA := numeric(field, a)
	db, okB := numeric(field, b)
	if okA && okB {
		if da.Equal(db) {
			return 1
		}
		if withinTolerance(da, db, tol) {
			return 0.5
		}
		return 0
	}
	if fmt.Sprint(a) == fmt.Sprint(b) {
		return 1
	}
	return 0
}

// withinTolerance measures the gap relative to the smaller magnitude, so the
// result does not depend on argument order. Zero against non-zero never qualifies.
func withinTolerance(a, b, tol decimal.Decimal) bool {
	absA, absB := a.Abs(), b.Abs()
	base := decimal.Min(absA, absB)
	if base.IsZero() {
		return false
	}
	return a.Sub(b).Abs().Div(base).LessThan(tol)
}

// numeric coerces v to a decimal. Strings only count as numbers for money
// fields and the tax year; SSN and EIN digits are compared as text.
func numeric(field string, v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case float32:
		if !finite(float64(x)) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(x), true
	case float64:
		if !finite(x) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(x), true
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x != nil {
			return *x, true
		}
	case decimal.NullDecimal:
		return x.Decimal, x.Valid
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	case string:
		if !isMoneyField(field) && field != FieldTaxYear {
			return decimal.Decimal{}, false
		}
		d, err := parseMoney(x)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// parseMoney accepts "$1,234.50" style input.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
	return decimal.NewFromString(s)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
