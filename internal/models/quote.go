package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// Valid reports whether s is one of the known quote statuses.
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired:
		return true
	}
	return false
}

// Quote is a priced proposal sent to a client.
type Quote struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ClientID    uint        `gorm:"index;not null" json:"client_id"`
	Client      *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	QuoteNumber string      `gorm:"size:20;uniqueIndex;not null" json:"quote_number"`
	DateCreated time.Time   `gorm:"type:date" json:"date_created"`
	ValidUntil  *time.Time  `gorm:"type:date" json:"valid_until,omitempty"`
	Status      QuoteStatus `gorm:"size:20;default:'draft'" json:"status"`
	Notes       string      `gorm:"type:text" json:"notes,omitempty"`

	// Total is the sum of the items' line totals, kept in sync on every item change.
	Total decimal.NullDecimal `gorm:"type:decimal(10,2);default:0" json:"total"`

	Items []QuoteItem `gorm:"foreignKey:QuoteID" json:"items,omitempty"`
	// Invoice is the single invoice created from this quote, if any.
	Invoice *Invoice `gorm:"foreignKey:QuoteID" json:"invoice,omitempty"`
}

// IsEditable reports whether items may still be changed.
func (q *Quote) IsEditable() bool {
	return q.Status == QuoteStatusDraft || q.Status == QuoteStatusSent
}

// QuoteItem is one priced line of a quote.
type QuoteItem struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	QuoteID     uint                `gorm:"index;not null" json:"quote_id"`
	Description string              `gorm:"size:200;not null" json:"description"`
	Quantity    decimal.NullDecimal `gorm:"type:decimal(10,2);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	LineTotal   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"line_total"`
}

// StoredLineTotal returns the persisted line total.
func (i QuoteItem) StoredLineTotal() decimal.NullDecimal { return i.LineTotal }
