package common

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsAllFailures(t *testing.T) {
	ssn := regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)

	v := NewValidator().
		Field("employee_first_name", "  ", Required).
		Field("tax_year", 1999, IntRange(2000, 2100)).
		Field("employee_ssn", "123456789", Matches(ssn, "formatted as 123-45-6789")).
		Add("wages", "abc", "is not a decimal amount")

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 4)
	assert.Equal(t, "employee_first_name", v.Errors()[0].Field)
	assert.Contains(t, v.ErrorMessage(), "must be between 2000 and 2100")
	assert.Contains(t, v.ErrorMessage(), "formatted as 123-45-6789")

	err := ValidateAndReturnError(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, IsCode(err, CodeSchemaInvalid))
}

func TestValidator_Passes(t *testing.T) {
	v := NewValidator().
		Field("employer_name", "Acme Corp", Required).
		Field("tax_year", 2024, IntRange(2000, 2100)).
		Field("employee_ssn", "", Matches(regexp.MustCompile(`^\d+$`), "digits"))

	assert.False(t, v.HasErrors())
	assert.Empty(t, v.ErrorMessage())
	assert.NoError(t, ValidateAndReturnError(v))
}

func TestIntRange_RejectsNonInteger(t *testing.T) {
	err := IntRange(0, 10)("tax_year", "2024")
	require.NotNil(t, err)
	assert.Equal(t, "must be an integer", err.Message)
}

func TestFileNotFoundError(t *testing.T) {
	err := FileNotFoundError("/nope/w2.pdf", errors.New("stat failed"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsCode(err, CodeFileNotFound))
	assert.Contains(t, err.Error(), "/nope/w2.pdf")
}
