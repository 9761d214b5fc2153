package models

import "github.com/shopspring/decimal"

// Service is a catalog entry. Line items copy its description and rate
// instead of referencing it, so editing the catalog never rewrites history.
type Service struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	DefaultRate decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"default_rate"`
}
