package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diewo77/go-crm/internal/models"
)

func TestCanTransitionQuote(t *testing.T) {
	tests := []struct {
		from, to models.QuoteStatus
		want     bool
	}{
		{models.QuoteStatusDraft, models.QuoteStatusSent, true},
		{models.QuoteStatusSent, models.QuoteStatusAccepted, true},
		{models.QuoteStatusSent, models.QuoteStatusRejected, true},
		{models.QuoteStatusSent, models.QuoteStatusExpired, true},
		{models.QuoteStatusDraft, models.QuoteStatusDraft, true},
		{models.QuoteStatusDraft, models.QuoteStatusAccepted, false},
		{models.QuoteStatusAccepted, models.QuoteStatusDraft, false},
		{models.QuoteStatusRejected, models.QuoteStatusAccepted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionQuote(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCanTransitionInvoice(t *testing.T) {
	assert.True(t, CanTransitionInvoice(models.InvoiceStatusDraft, models.InvoiceStatusSent))
	assert.True(t, CanTransitionInvoice(models.InvoiceStatusSent, models.InvoiceStatusOverdue))
	assert.True(t, CanTransitionInvoice(models.InvoiceStatusPaid, models.InvoiceStatusSent))
	assert.False(t, CanTransitionInvoice(models.InvoiceStatusPaid, models.InvoiceStatusDraft))
	assert.False(t, CanTransitionInvoice(models.InvoiceStatusDraft, models.InvoiceStatusOverdue))
}

func TestCanInvoice(t *testing.T) {
	assert.True(t, CanInvoice(models.QuoteStatusAccepted))
	for _, s := range []models.QuoteStatus{models.QuoteStatusDraft, models.QuoteStatusSent, models.QuoteStatusRejected, models.QuoteStatusExpired} {
		assert.False(t, CanInvoice(s), string(s))
	}
}

func TestStatusAfterSend(t *testing.T) {
	assert.Equal(t, models.QuoteStatusSent, StatusAfterSend(models.QuoteStatusDraft))
	assert.Equal(t, models.QuoteStatusSent, StatusAfterSend(models.QuoteStatusSent))
	assert.Equal(t, models.QuoteStatusAccepted, StatusAfterSend(models.QuoteStatusAccepted))
	assert.Equal(t, models.InvoiceStatusSent, InvoiceStatusAfterSend(models.InvoiceStatusDraft))
	assert.Equal(t, models.InvoiceStatusPaid, InvoiceStatusAfterSend(models.InvoiceStatusPaid))
}

func TestStatusAfterPayment(t *testing.T) {
	tests := []struct {
		name    string
		current models.InvoiceStatus
		balance string
		ev      PaymentEvent
		want    models.InvoiceStatus
	}{
		{"recorded settles", models.InvoiceStatusSent, "0", PaymentRecorded, models.InvoiceStatusPaid},
		{"recorded partial keeps draft", models.InvoiceStatusDraft, "50", PaymentRecorded, models.InvoiceStatusDraft},
		{"recorded partial on overdue", models.InvoiceStatusOverdue, "50", PaymentRecorded, models.InvoiceStatusSent},
		{"recorded settles draft", models.InvoiceStatusDraft, "0", PaymentRecorded, models.InvoiceStatusPaid},
		{"overpaid stays paid", models.InvoiceStatusPaid, "-10", PaymentRecorded, models.InvoiceStatusPaid},
		{"changed reopens", models.InvoiceStatusPaid, "5", PaymentChanged, models.InvoiceStatusSent},
		{"removed demotes paid", models.InvoiceStatusPaid, "130", PaymentRemoved, models.InvoiceStatusSent},
		{"removed keeps overdue", models.InvoiceStatusOverdue, "130", PaymentRemoved, models.InvoiceStatusOverdue},
		{"removed keeps draft", models.InvoiceStatusDraft, "130", PaymentRemoved, models.InvoiceStatusDraft},
		{"removed still settled", models.InvoiceStatusPaid, "0", PaymentRemoved, models.InvoiceStatusPaid},
		{"grown total reopens paid", models.InvoiceStatusPaid, "50", TotalChanged, models.InvoiceStatusSent},
		{"grown total keeps draft", models.InvoiceStatusDraft, "50", TotalChanged, models.InvoiceStatusDraft},
		{"shrunk total settles", models.InvoiceStatusSent, "0", TotalChanged, models.InvoiceStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusAfterPayment(tt.current, d(tt.balance), tt.ev)
			assert.Equal(t, tt.want, got)
		})
	}
}
