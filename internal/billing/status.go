package billing

import (
	"github.com/diewo77/go-crm/internal/models"
	"github.com/shopspring/decimal"
)

var quoteTransitions = map[models.QuoteStatus][]models.QuoteStatus{
	models.QuoteStatusDraft: {models.QuoteStatusSent},
	models.QuoteStatusSent:  {models.QuoteStatusAccepted, models.QuoteStatusRejected, models.QuoteStatusExpired},
}

var invoiceTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:   {models.InvoiceStatusSent},
	models.InvoiceStatusSent:    {models.InvoiceStatusPaid, models.InvoiceStatusOverdue},
	models.InvoiceStatusOverdue: {models.InvoiceStatusPaid, models.InvoiceStatusSent},
	models.InvoiceStatusPaid:    {models.InvoiceStatusSent},
}

// CanTransitionQuote reports whether an operator may move a quote from one
// status to another. Keeping the current status is always allowed.
func CanTransitionQuote(from, to models.QuoteStatus) bool {
	if from == to {
		return true
	}
	for _, s := range quoteTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionInvoice is CanTransitionQuote for invoices.
func CanTransitionInvoice(from, to models.InvoiceStatus) bool {
	if from == to {
		return true
	}
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanInvoice reports whether a quote in status s may be turned into an invoice.
func CanInvoice(s models.QuoteStatus) bool {
	return s == models.QuoteStatusAccepted
}

// StatusAfterSend is the quote status once it has been emailed. Quotes that
// were already decided keep their status.
func StatusAfterSend(s models.QuoteStatus) models.QuoteStatus {
	if s == models.QuoteStatusDraft {
		return models.QuoteStatusSent
	}
	return s
}

// InvoiceStatusAfterSend is the invoice status once it has been emailed.
func InvoiceStatusAfterSend(s models.InvoiceStatus) models.InvoiceStatus {
	if s == models.InvoiceStatusDraft {
		return models.InvoiceStatusSent
	}
	return s
}

// PaymentEvent identifies the payment mutation that triggered a status update.
type PaymentEvent int

const (
	PaymentRecorded PaymentEvent = iota
	PaymentChanged
	PaymentRemoved
	// TotalChanged is an item edit on an invoice that already has payments.
	TotalChanged
)

// StatusAfterPayment derives the invoice status from the balance recomputed
// after a payment mutation.
//
// A settled balance (zero or negative) always means paid. Otherwise a
// recorded or changed payment leaves the invoice sent unless it was never
// sent (draft), while a removed payment or a grown total only demotes an
// invoice that was paid and keeps any other status.
func StatusAfterPayment(current models.InvoiceStatus, balance decimal.Decimal, ev PaymentEvent) models.InvoiceStatus {
	if !balance.IsPositive() {
		return models.InvoiceStatusPaid
	}
	switch ev {
	case PaymentRemoved, TotalChanged:
		if current == models.InvoiceStatusPaid {
			return models.InvoiceStatusSent
		}
		return current
	default:
		if current == models.InvoiceStatusDraft {
			return current
		}
		return models.InvoiceStatusSent
	}
}
