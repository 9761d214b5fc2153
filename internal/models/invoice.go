package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is one of the known invoice statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice represents a billing invoice, created directly or from an accepted quote.
type Invoice struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	// QuoteID links back to the originating quote; a quote yields at most one invoice.
	QuoteID       *uint         `gorm:"uniqueIndex" json:"quote_id,omitempty"`
	InvoiceNumber string        `gorm:"size:20;uniqueIndex;not null" json:"invoice_number"`
	DateIssued    time.Time     `gorm:"type:date" json:"date_issued"`
	DueDate       *time.Time    `gorm:"type:date" json:"due_date,omitempty"`
	Status        InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`

	Total decimal.NullDecimal `gorm:"type:decimal(10,2);default:0" json:"total"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsPastDue reports whether the invoice is unpaid and its due date is before day.
func (i *Invoice) IsPastDue(day time.Time) bool {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusDraft || i.DueDate == nil {
		return false
	}
	y, m, d := day.Date()
	return i.DueDate.Before(time.Date(y, m, d, 0, 0, 0, 0, i.DueDate.Location()))
}

// PaymentAmounts returns the amounts of the loaded payments.
func (i *Invoice) PaymentAmounts() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(i.Payments))
	for _, p := range i.Payments {
		out = append(out, p.Amount)
	}
	return out
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	InvoiceID   uint                `gorm:"index;not null" json:"invoice_id"`
	Description string              `gorm:"size:200;not null" json:"description"`
	Quantity    decimal.NullDecimal `gorm:"type:decimal(10,2);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"line_total"`
}

// StoredLineTotal returns the persisted line total.
func (i InvoiceItem) StoredLineTotal() decimal.NullDecimal { return i.LineTotal }
