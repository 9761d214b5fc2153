package services

import (
	"context"
	"time"

	"github.com/diewo77/go-crm/internal/billing"
	"gorm.io/gorm"
)

// NumberAllocator hands out document numbers. The candidate is the highest
// suffix of the year plus one; the unique index on the number column turns a
// concurrent duplicate into an insert error, and createWithNumber retries.
type NumberAllocator struct {
	Now func() time.Time
}

func NewNumberAllocator() *NumberAllocator {
	return &NumberAllocator{Now: time.Now}
}

// Next computes the next number for prefix in the current year. table and
// column name where existing numbers live.
func (a *NumberAllocator) Next(tx *gorm.DB, table, column, prefix string) (string, error) {
	year := a.Now().Year()
	var existing []string
	err := tx.Table(table).
		Where(column+" LIKE ?", billing.NumberPattern(prefix, year)).
		Pluck(column, &existing).Error
	if err != nil {
		return "", err
	}
	return billing.NextDocumentNumber(existing, prefix, year), nil
}

// createWithNumber runs fn in a fresh transaction, retrying when the insert
// lost a number race. fn must allocate its number inside the transaction.
func createWithNumber(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return &ConflictError{Code: CodeNumberAllocationFailed, Message: "could not allocate a unique document number"}
}
