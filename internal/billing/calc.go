// Package billing holds the derived-value arithmetic of quotes and invoices:
// line totals, document totals, balances, document numbers and the status
// rules driven by payments. Everything here is pure; nothing touches storage.
package billing

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept on monetary amounts.
const MoneyPlaces = 2

// MaxAmount bounds every stored amount: decimal(10,2) keeps eight integer digits.
var MaxAmount = decimal.New(1, 8)

// InRange reports whether d fits a stored amount column.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxAmount)
}

// LineItem is anything carrying a persisted line total.
type LineItem interface {
	StoredLineTotal() decimal.NullDecimal
}

// LineTotal returns quantity × unitPrice rounded to cents. A missing quantity
// or price counts as zero.
func LineTotal(quantity, unitPrice decimal.NullDecimal) decimal.Decimal {
	if !quantity.Valid || !unitPrice.Valid {
		return decimal.Zero
	}
	return quantity.Decimal.Mul(unitPrice.Decimal).Round(MoneyPlaces)
}

// LineTotalOf is LineTotal for values known to be present.
func LineTotalOf(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return LineTotal(decimal.NewNullDecimal(quantity), decimal.NewNullDecimal(unitPrice))
}

// DocumentTotal sums the stored line totals of items. Missing line totals
// count as zero.
func DocumentTotal[T LineItem](items []T) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if lt := it.StoredLineTotal(); lt.Valid {
			total = total.Add(lt.Decimal)
		}
	}
	return total.Round(MoneyPlaces)
}

// Balance returns total minus the sum of payments. A missing total counts as
// zero. The result is negative when the invoice was overpaid and is never
// clamped.
func Balance(total decimal.NullDecimal, payments []decimal.Decimal) decimal.Decimal {
	bal := decimal.Zero
	if total.Valid {
		bal = total.Decimal
	}
	for _, p := range payments {
		bal = bal.Sub(p)
	}
	return bal.Round(MoneyPlaces)
}

// Money wraps an amount as a present nullable decimal.
func Money(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d.Round(MoneyPlaces))
}
