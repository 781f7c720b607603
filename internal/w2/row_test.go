package w2

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneybin/moneybin-w2/constants"
)

func validatedRecord(t *testing.T) *Record {
	t.Helper()
	c, err := NewParser(nil).Parse(Input{Text: sampleText("2024") + "\n12a D 5000.00"})
	require.NoError(t, err)
	rec, err := Validate(c)
	require.NoError(t, err)

	agreement := 1.0
	rec.ExtractionID = uuid.New()
	rec.ExtractionMethod = constants.MethodText
	rec.ConfidenceScore = 1
	rec.Agreement = &agreement
	rec.SourceFile = "/inbox/w2.pdf"
	rec.ExtractedAt = time.Date(2025, 2, 1, 10, 30, 0, 123456000, time.UTC)
	return rec
}

func TestRowFromRecord(t *testing.T) {
	rec := validatedRecord(t)

	row, err := RowFromRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "75000.00", row.Wages)
	assert.Equal(t, "1087.50", *row.MedicareTax)
	assert.Nil(t, row.AllocatedTips)
	assert.Equal(t, "text", row.ExtractionMethod)
	assert.Equal(t, "2025-02-01T10:30:00.123456Z", row.ExtractedAt)
	assert.Equal(t, "***-**-4905", row.MaskedSSN())

	require.NotNil(t, row.StateLocalInfo)
	var states []map[string]any
	require.NoError(t, json.Unmarshal([]byte(*row.StateLocalInfo), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "IL", states[0]["state"])
	assert.NotContains(t, states[0], "locality_name")

	require.NotNil(t, row.OptionalBoxes)
	assert.JSONEq(t, `{"box_12_codes":{"D":"5000.00"}}`, *row.OptionalBoxes)
}

func TestRow_RoundTripIsExact(t *testing.T) {
	rec := validatedRecord(t)
	rec.Wages = decimal.RequireFromString("319075.95")
	rec.SocialSecurityTips = decimal.NewNullDecimal(decimal.RequireFromString("0.01"))

	row, err := RowFromRecord(rec)
	require.NoError(t, err)

	b, err := json.Marshal(row)
	require.NoError(t, err)
	var decoded Row
	require.NoError(t, json.Unmarshal(b, &decoded))

	back, err := decoded.Record()
	require.NoError(t, err)

	assert.Equal(t, rec.Wages.String(), back.Wages.String())
	assert.True(t, rec.Wages.Equal(back.Wages))
	assert.True(t, rec.FederalIncomeTax.Equal(back.FederalIncomeTax))
	assert.True(t, rec.MedicareTax.Decimal.Equal(back.MedicareTax.Decimal))
	assert.True(t, back.SocialSecurityTips.Valid)
	assert.Equal(t, "0.01", back.SocialSecurityTips.Decimal.String())
	assert.False(t, back.AllocatedTips.Valid)
	assert.True(t, rec.StateLocalInfo[0].StateIncomeTax.Equal(*back.StateLocalInfo[0].StateIncomeTax))
	assert.Equal(t, rec.OptionalBoxes, back.OptionalBoxes)
	assert.Equal(t, rec.ExtractionID, back.ExtractionID)
	assert.True(t, rec.ExtractedAt.Equal(back.ExtractedAt))
	assert.Equal(t, rec.EmployerAddress, back.EmployerAddress)

	again, err := RowFromRecord(back)
	require.NoError(t, err)
	assert.Equal(t, row, again)
}
