package billing

import (
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Line is one printable row of a document.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Document is the printable form of a quote or invoice, shared by the email
// and PDF renderers.
type Document struct {
	Kind   models.EmailType
	Number string
	Status string
	Client models.Client
	Date   time.Time
	// Until is valid_until for quotes and the due date for invoices.
	Until *time.Time
	Lines []Line
	Notes string

	Total   decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
}

// IsInvoice reports whether the document is an invoice.
func (d Document) IsInvoice() bool { return d.Kind == models.EmailTypeInvoice }

// QuoteDocument builds the printable form of q. Client and Items must be loaded.
func QuoteDocument(q *models.Quote) Document {
	d := Document{
		Kind:   models.EmailTypeQuote,
		Number: q.QuoteNumber,
		Status: string(q.Status),
		Date:   q.DateCreated,
		Until:  q.ValidUntil,
		Notes:  q.Notes,
		Total:  q.Total.Decimal.Round(MoneyPlaces),
	}
	if q.Client != nil {
		d.Client = *q.Client
	}
	for _, it := range q.Items {
		d.Lines = append(d.Lines, line(it.Description, it.Quantity, it.UnitPrice, it.LineTotal))
	}
	d.Balance = d.Total
	return d
}

// InvoiceDocument builds the printable form of inv. Client, Items and
// Payments must be loaded.
func InvoiceDocument(inv *models.Invoice) Document {
	d := Document{
		Kind:   models.EmailTypeInvoice,
		Number: inv.InvoiceNumber,
		Status: string(inv.Status),
		Date:   inv.DateIssued,
		Until:  inv.DueDate,
		Notes:  inv.Notes,
		Total:  inv.Total.Decimal.Round(MoneyPlaces),
	}
	if inv.Client != nil {
		d.Client = *inv.Client
	}
	for _, it := range inv.Items {
		d.Lines = append(d.Lines, line(it.Description, it.Quantity, it.UnitPrice, it.LineTotal))
	}
	d.Balance = Balance(inv.Total, inv.PaymentAmounts())
	d.Paid = d.Total.Sub(d.Balance)
	return d
}

func line(desc string, qty decimal.NullDecimal, price decimal.Decimal, total decimal.NullDecimal) Line {
	return Line{
		Description: desc,
		Quantity:    qty.Decimal,
		UnitPrice:   price,
		Total:       total.Decimal,
	}
}

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount in dollars with thousands separators,
// e.g. $1,234.50 or -$10.00.
func FormatMoney(d decimal.Decimal) string {
	d = d.Round(MoneyPlaces)
	s := printer.Sprint(number.Decimal(d.Abs().InexactFloat64(),
		number.MinFractionDigits(MoneyPlaces), number.MaxFractionDigits(MoneyPlaces)))
	if d.IsNegative() {
		return "-$" + s
	}
	return "$" + s
}

// FormatQuantity drops trailing zeros: 2.00 prints as 2, 1.50 as 1.5.
func FormatQuantity(d decimal.Decimal) string {
	return d.String()
}

// FormatDate prints a document date, e.g. March 5, 2024.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}
