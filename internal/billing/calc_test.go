package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-crm/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name      string
		quantity  decimal.NullDecimal
		unitPrice decimal.NullDecimal
		want      string
	}{
		{"simple", nd("2"), nd("50.00"), "100.00"},
		{"fractional quantity", nd("1.5"), nd("19.99"), "29.99"},
		{"rounds half up to cents", nd("0.5"), nd("0.05"), "0.03"},
		{"missing quantity", decimal.NullDecimal{}, nd("50"), "0"},
		{"missing price", nd("3"), decimal.NullDecimal{}, "0"},
		{"zero", nd("0"), nd("12.34"), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(tt.quantity, tt.unitPrice)
			assert.True(t, got.Equal(d(tt.want)), "LineTotal() = %s, want %s", got, tt.want)
		})
	}
}

func TestLineTotalOf(t *testing.T) {
	got := LineTotalOf(d("3"), d("0.10"))
	assert.Equal(t, "0.30", got.StringFixed(2))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(d("99999999.99")))
	assert.True(t, InRange(d("-99999999.99")))
	assert.False(t, InRange(d("100000000")))
	assert.False(t, InRange(LineTotalOf(d("99999999"), d("2"))))
}

func TestDocumentTotal(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.True(t, DocumentTotal([]models.QuoteItem{}).IsZero())
		assert.True(t, DocumentTotal[models.InvoiceItem](nil).IsZero())
	})

	t.Run("sums stored line totals", func(t *testing.T) {
		items := []models.QuoteItem{
			{LineTotal: nd("100.00")},
			{LineTotal: nd("30.00")},
		}
		assert.Equal(t, "130.00", DocumentTotal(items).StringFixed(2))
	})

	t.Run("null line total counts as zero", func(t *testing.T) {
		items := []models.InvoiceItem{
			{LineTotal: nd("10.10")},
			{},
		}
		assert.Equal(t, "10.10", DocumentTotal(items).StringFixed(2))
	})

	t.Run("uses stored value not inputs", func(t *testing.T) {
		items := []models.InvoiceItem{
			{Quantity: nd("5"), UnitPrice: d("5"), LineTotal: nd("1")},
		}
		assert.True(t, DocumentTotal(items).Equal(d("1")))
	})
}

func TestBalance(t *testing.T) {
	total := nd("130.00")

	assert.True(t, Balance(total, nil).Equal(d("130")), "no payments leaves the total")
	assert.True(t, Balance(total, []decimal.Decimal{d("130.00")}).IsZero())
	assert.True(t, Balance(total, []decimal.Decimal{d("130.00"), d("10.00")}).Equal(d("-10")), "overpayment is negative")
	assert.True(t, Balance(decimal.NullDecimal{}, []decimal.Decimal{d("5")}).Equal(d("-5")), "null total is zero")

	payments := []decimal.Decimal{d("40"), d("0.01")}
	first := Balance(total, payments)
	second := Balance(total, payments)
	assert.True(t, first.Equal(second))
	assert.Equal(t, "89.99", first.StringFixed(2))
}

// Quote Wash 2×50 + Wax 1×30, converted and then paid in full and overpaid.
func TestWashAndWaxScenario(t *testing.T) {
	items := []models.QuoteItem{
		{Description: "Wash", Quantity: nd("2"), UnitPrice: d("50.00")},
		{Description: "Wax", Quantity: nd("1"), UnitPrice: d("30.00")},
	}
	for i := range items {
		items[i].LineTotal = Money(LineTotal(items[i].Quantity, decimal.NewNullDecimal(items[i].UnitPrice)))
	}
	quoteTotal := DocumentTotal(items)
	require.Equal(t, "130.00", quoteTotal.StringFixed(2))

	invItems := make([]models.InvoiceItem, 0, len(items))
	for _, q := range items {
		invItems = append(invItems, models.InvoiceItem{
			Description: q.Description, Quantity: q.Quantity, UnitPrice: q.UnitPrice, LineTotal: q.LineTotal,
		})
	}
	invTotal := Money(DocumentTotal(invItems))
	require.True(t, invTotal.Decimal.Equal(quoteTotal))

	payments := []decimal.Decimal{d("130.00")}
	bal := Balance(invTotal, payments)
	assert.True(t, bal.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, StatusAfterPayment(models.InvoiceStatusSent, bal, PaymentRecorded))

	payments = append(payments, d("10.00"))
	bal = Balance(invTotal, payments)
	assert.Equal(t, "-10.00", bal.StringFixed(2))
	assert.Equal(t, models.InvoiceStatusPaid, StatusAfterPayment(models.InvoiceStatusPaid, bal, PaymentRecorded))
}
