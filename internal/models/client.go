package models

import (
	"strings"
	"time"
)

// Client is a customer of the business. Quotes, invoices and email logs
// reference it; it is never removed while any of them exist.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"size:100;not null" json:"name"`
	Email string `gorm:"size:100;not null;index" json:"email"`
	Phone string `gorm:"size:20" json:"phone,omitempty"`

	// Address
	Address1 string `gorm:"size:100" json:"address1,omitempty"`
	Address2 string `gorm:"size:100" json:"address2,omitempty"`
	City     string `gorm:"size:50" json:"city,omitempty"`
	State    string `gorm:"size:50" json:"state,omitempty"`
	ZipCode  string `gorm:"size:20" json:"zip_code,omitempty"`
}

// FullAddress returns the postal address as printed on documents:
// street lines first, then "City, ST 12345".
func (c *Client) FullAddress() string {
	var lines []string
	for _, l := range []string{c.Address1, c.Address2} {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}
	locality := strings.TrimSpace(c.City)
	if c.State != "" {
		if locality != "" {
			locality += ", "
		}
		locality += c.State
	}
	if c.ZipCode != "" {
		if locality != "" {
			locality += " "
		}
		locality += c.ZipCode
	}
	if locality != "" {
		lines = append(lines, locality)
	}
	return strings.Join(lines, "\n")
}
