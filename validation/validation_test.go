package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredAndEmail(t *testing.T) {
	v := make(Violations)
	Required("name", "  ", v)
	Email("email", "not-an-email", v)
	Email("other", "", v)
	assert.Equal(t, "required", v["name"])
	assert.Equal(t, "invalid_email", v["email"])
	assert.NotContains(t, v, "other")
	assert.False(t, v.Empty())
}

func TestAddKeepsFirstViolation(t *testing.T) {
	v := make(Violations)
	v.Add("amount", "invalid_decimal")
	v.Add("amount", "required")
	assert.Equal(t, "invalid_decimal", v["amount"])
}

func TestDecimalUnmarshal(t *testing.T) {
	var payload struct {
		A Decimal `json:"a"`
		B Decimal `json:"b"`
		C Decimal `json:"c"`
		D Decimal `json:"d"`
		E Decimal `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 12.5, "b": "7.25", "c": "abc", "d": null, "e": ""}`), &payload)
	require.NoError(t, err)

	assert.True(t, payload.A.Set)
	assert.Equal(t, "12.5", payload.A.Value.String())
	assert.True(t, payload.B.Set)
	assert.Equal(t, "7.25", payload.B.Value.String())
	assert.True(t, payload.C.Invalid)
	assert.False(t, payload.D.Set)
	assert.False(t, payload.E.Set)
	assert.False(t, payload.E.Invalid)
}

func TestDecimalValidators(t *testing.T) {
	v := make(Violations)
	RequiredDecimal("missing", Decimal{}, v)
	RequiredDecimal("bad", Decimal{Invalid: true}, v)
	NonNegative("neg", NewDecimal("-1"), v)
	Positive("zero", NewDecimal("0"), v)
	Money("cents", NewDecimal("1.005"), v)
	Money("ok", NewDecimal("19.99"), v)

	assert.Equal(t, "required", v["missing"])
	assert.Equal(t, "invalid_decimal", v["bad"])
	assert.Equal(t, "must_not_be_negative", v["neg"])
	assert.Equal(t, "must_be_positive", v["zero"])
	assert.Equal(t, "too_many_decimals", v["cents"])
	assert.NotContains(t, v, "ok")
}

func TestDecimalRange(t *testing.T) {
	v := make(Violations)
	Money("huge", NewDecimal("1e200000"), v)
	Money("wide", NewDecimal("123456789.00"), v)
	Money("max", NewDecimal("99999999.99"), v)
	Money("tiny", NewDecimal("1e-200000"), v)
	Money("zeros", NewDecimal("1.500"), v)
	Range("neg", NewDecimal("-123456789"), MoneyDigits, v)

	assert.Equal(t, "out_of_range", v["huge"])
	assert.Equal(t, "out_of_range", v["wide"])
	assert.Equal(t, "out_of_range", v["neg"])
	assert.Equal(t, "too_many_decimals", v["tiny"])
	assert.NotContains(t, v, "max")
	assert.NotContains(t, v, "zeros")
}

func TestDateUnmarshal(t *testing.T) {
	var payload struct {
		Good Date `json:"good"`
		Bad  Date `json:"bad"`
		None Date `json:"none"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"good":"2024-02-29","bad":"02/29/2024"}`), &payload))

	assert.True(t, payload.Good.Set)
	assert.Equal(t, 29, payload.Good.Value.Day())
	assert.NotNil(t, payload.Good.Ptr())
	assert.True(t, payload.Bad.Invalid)
	assert.Nil(t, payload.None.Ptr())

	v := make(Violations)
	DateSyntax("bad", payload.Bad, v)
	assert.Equal(t, "invalid_date", v["bad"])
}

func TestOneOf(t *testing.T) {
	v := make(Violations)
	OneOf("status", "draft", []string{"draft", "sent"}, v)
	OneOf("kind", "fax", []string{"quote", "invoice"}, v)
	assert.NotContains(t, v, "status")
	assert.Equal(t, "invalid_value", v["kind"])
}

func TestParseDate(t *testing.T) {
	_, ok, err := ParseDate("")
	assert.False(t, ok)
	assert.NoError(t, err)

	d, ok, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, int(d.Month()))

	_, _, err = ParseDate("June 1")
	assert.Error(t, err)
}
