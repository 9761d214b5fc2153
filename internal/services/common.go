// Package services implements the CRM operations on top of gorm. Every
// mutation runs in one transaction; derived values (line totals, document
// totals, balances, numbers and payment-driven statuses) come from the
// billing package.
package services

import (
	"strings"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultTermDays is the default due-date and validity distance.
const DefaultTermDays = 30

// maxNumberAttempts bounds the create retries after a duplicate document number.
const maxNumberAttempts = 5

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func addDays(t time.Time, days int) *time.Time {
	d := t.AddDate(0, 0, days)
	return &d
}

func paginate(p httpx.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Limit <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}

func orderByID(db *gorm.DB) *gorm.DB { return db.Order("id") }

// like builds a case-insensitive LIKE pattern.
func like(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// ItemInput is one line of a quote or invoice payload. ServiceID, when set,
// fills description and unit price from the catalog where they are missing.
type ItemInput struct {
	ID          uint               `json:"id,omitempty"`
	ServiceID   uint               `json:"service_id,omitempty"`
	Description string             `json:"description"`
	Quantity    validation.Decimal `json:"quantity"`
	UnitPrice   validation.Decimal `json:"unit_price"`
}

func (in ItemInput) validate(prefix string, v validation.Violations) {
	if in.ID == 0 && in.ServiceID == 0 {
		validation.Required(prefix+"description", in.Description, v)
		validation.RequiredDecimal(prefix+"unit_price", in.UnitPrice, v)
	}
	validation.MaxLen(prefix+"description", in.Description, 200, v)
	validation.Money(prefix+"quantity", in.Quantity, v)
	validation.Money(prefix+"unit_price", in.UnitPrice, v)
}

// resolveItem applies catalog defaults and returns the final description,
// quantity, price and line total.
func resolveItem(tx *gorm.DB, in ItemInput) (desc string, qty, price decimal.Decimal, err error) {
	desc = strings.TrimSpace(in.Description)
	price = in.UnitPrice.Value
	if in.ServiceID != 0 {
		svc, e := loadService(tx, in.ServiceID)
		if e != nil {
			return "", qty, price, e
		}
		if desc == "" {
			desc = svc.Name
		}
		if !in.UnitPrice.Set {
			price = svc.DefaultRate
		}
	}
	qty = validation.DecimalOr(in.Quantity, decimal.NewFromInt(1))
	return desc, qty, price, nil
}

// checkAmount rejects a derived amount too large for its column.
func checkAmount(field string, d decimal.Decimal) error {
	if !billing.InRange(d) {
		return invalid(field, "out_of_range")
	}
	return nil
}

func lineAmounts(qty, price decimal.Decimal) (q, p, total decimal.NullDecimal) {
	return billing.Money(qty), billing.Money(price), billing.Money(billing.LineTotalOf(qty, price))
}

func decimalPresent(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}
