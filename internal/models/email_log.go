package models

import "time"

// EmailType tells which kind of document a notification carried.
type EmailType string

const (
	EmailTypeQuote   EmailType = "quote"
	EmailTypeInvoice EmailType = "invoice"
)

// EmailLog is the audit record of one send attempt. It is written before the
// message is handed to the transport; only DeliveryError is filled in later.
type EmailLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ClientID      *uint     `gorm:"index" json:"client_id,omitempty"`
	QuoteID       *uint     `gorm:"index" json:"quote_id,omitempty"`
	InvoiceID     *uint     `gorm:"index" json:"invoice_id,omitempty"`
	EmailType     EmailType `gorm:"size:20" json:"email_type"`
	Subject       string    `gorm:"size:200" json:"subject"`
	Body          string    `gorm:"type:text" json:"body"`
	Recipient     string    `gorm:"size:100" json:"recipient"`
	SentAt        time.Time `json:"sent_at"`
	DeliveryError string    `gorm:"type:text" json:"delivery_error,omitempty"`
}

// Delivered reports whether the transport accepted the message.
func (l *EmailLog) Delivered() bool { return l.DeliveryError == "" }
