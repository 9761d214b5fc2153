// Package validation collects field-level violations for request payloads.
// Violation values are short snake_case codes the API returns verbatim.
package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

// Email checks a non-empty address is well formed.
func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len(value) > max {
		v.Add(field, "too_long")
	}
}

// OneOf checks value is one of allowed when it is set.
func OneOf(field, value string, allowed []string, v Violations) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	v.Add(field, "invalid_value")
}

// DecimalSyntax flags a decimal field that was present but unparsable.
func DecimalSyntax(field string, d Decimal, v Violations) {
	if d.Invalid {
		v.Add(field, "invalid_decimal")
	}
}

// RequiredDecimal checks a decimal field is present and parsable.
func RequiredDecimal(field string, d Decimal, v Violations) {
	DecimalSyntax(field, d, v)
	if !d.Set && !d.Invalid {
		v.Add(field, "required")
	}
}

func NonNegative(field string, d Decimal, v Violations) {
	DecimalSyntax(field, d, v)
	if d.Set && d.Value.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

func Positive(field string, d Decimal, v Violations) {
	DecimalSyntax(field, d, v)
	if d.Set && !d.Value.IsPositive() {
		v.Add(field, "must_be_positive")
	}
}

// MoneyDigits is the number of integer digits a decimal(10,2) column holds.
const MoneyDigits = 8

// Range rejects values with more than digits integer digits. It reads the
// coefficient and exponent directly, so "1e200000" is refused without being
// expanded.
func Range(field string, d Decimal, digits int, v Violations) {
	if d.Set && integerDigits(d.Value) > digits {
		v.Add(field, "out_of_range")
	}
}

// MaxScale rejects amounts with more fractional digits than places.
func MaxScale(field string, d Decimal, places int32, v Violations) {
	if d.Set && fractionDigits(d.Value) > int(places) {
		v.Add(field, "too_many_decimals")
	}
}

func integerDigits(d decimal.Decimal) int {
	c := d.Coefficient()
	if c.Sign() == 0 {
		return 0
	}
	return len(c.Abs(c).String()) + int(d.Exponent())
}

// fractionDigits counts significant digits after the point, ignoring
// trailing zeros ("1.500" has one).
func fractionDigits(d decimal.Decimal) int {
	exp := int(d.Exponent())
	if exp >= 0 {
		return 0
	}
	c := d.Coefficient()
	if c.Sign() == 0 {
		return 0
	}
	digits := c.Abs(c).String()
	zeros := len(digits) - len(strings.TrimRight(digits, "0"))
	if n := -exp - zeros; n > 0 {
		return n
	}
	return 0
}

// DateSyntax flags a date field that was present but unparsable.
func DateSyntax(field string, d Date, v Violations) {
	if d.Invalid {
		v.Add(field, "invalid_date")
	}
}

// Money is a shortcut for amounts: parsable, not negative, below 10^8, at most cents.
func Money(field string, d Decimal, v Violations) {
	NonNegative(field, d, v)
	Range(field, d, MoneyDigits, v)
	MaxScale(field, d, 2, v)
}

// DecimalOr returns the parsed value or def when the field was absent.
func DecimalOr(d Decimal, def decimal.Decimal) decimal.Decimal {
	if d.Set {
		return d.Value
	}
	return def
}
