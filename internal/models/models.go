// Package models holds the gorm entities of the CRM: clients, the service
// catalog, quotes, invoices, payments, the email audit log and users.
package models

// All returns every entity in foreign-key order, parents first. Schema
// migration and the table copier both rely on this order.
func All() []any {
	return []any{
		&Client{},
		&Service{},
		&User{},
		&Quote{},
		&QuoteItem{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&EmailLog{},
	}
}

// TableNames lists the tables behind All, in the same order.
var TableNames = []string{
	"clients",
	"services",
	"users",
	"quotes",
	"quote_items",
	"invoices",
	"invoice_items",
	"payments",
	"email_logs",
}
