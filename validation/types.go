package validation

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Decimal is a request field accepting a JSON number or numeric string.
// Unparsable input does not fail decoding; it marks the field Invalid so the
// handler can report it with the other violations.
type Decimal struct {
	Value   decimal.Decimal
	Set     bool
	Invalid bool
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	*d = Decimal{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			d.Invalid = true
			return nil
		}
		s = strings.TrimSpace(raw)
		if s == "" {
			return nil
		}
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.Invalid = true
		return nil
	}
	d.Value, d.Set = v, true
	return nil
}

// NewDecimal returns a present Decimal, mostly for tests and internal callers.
func NewDecimal(s string) Decimal {
	return Decimal{Value: decimal.RequireFromString(s), Set: true}
}

// Date is a request field holding a YYYY-MM-DD calendar date.
type Date struct {
	Value   time.Time
	Set     bool
	Invalid bool
}

func (d *Date) UnmarshalJSON(b []byte) error {
	*d = Date{}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		d.Invalid = true
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		d.Invalid = true
		return nil
	}
	d.Value, d.Set = t, true
	return nil
}

// Ptr returns the date or nil when absent.
func (d Date) Ptr() *time.Time {
	if !d.Set {
		return nil
	}
	t := d.Value
	return &t
}

// ParseDate parses a query-string date; empty input yields ok=false without error.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}
