package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

// ErrNotFound wraps every lookup of a missing row.
var ErrNotFound = errors.New("not found")

// ValidationError carries field violations; nothing was written.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// invalid builds a single-field ValidationError.
func invalid(field, code string) *ValidationError {
	return &ValidationError{Fields: validation.Violations{field: code}}
}

func check(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Fields: v}
}

// ConflictError reports a request that contradicts the stored state.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "conflict: " + e.Code
	}
	return e.Message
}

// Conflict codes.
const (
	CodeQuoteAlreadyInvoiced   = "quote_already_invoiced"
	CodeClientInUse            = "client_in_use"
	CodeQuoteNotEditable       = "quote_not_editable"
	CodeNumberAllocationFailed = "number_allocation_failed"
	CodeEmailTaken             = "email_taken"
	CodeLastAdmin              = "last_admin"
)

// TransportError is the degraded outcome of a send: the audit row and the
// status change are committed, the message was not delivered.
type TransportError struct {
	EmailLogID uint
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("email not delivered (log %d): %v", e.EmailLogID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// notFound translates gorm.ErrRecordNotFound into ErrNotFound naming the entity.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// isUniqueViolation recognizes duplicate-key errors from either engine.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
