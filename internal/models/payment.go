package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment tied to invoices
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	InvoiceID uint            `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice        `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Date      time.Time       `gorm:"type:date" json:"date"`
	Method    string          `gorm:"size:50" json:"method,omitempty"` // cash, check, card, transfer...
	Reference string          `gorm:"size:100" json:"reference,omitempty"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
}
