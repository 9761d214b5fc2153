package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// Document number prefixes.
const (
	QuotePrefix   = "Q"
	InvoicePrefix = "INV"
)

// ParseDocumentNumber splits "<prefix>-<year>-<seq>" into its parts.
func ParseDocumentNumber(s string) (prefix string, year, seq int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, false
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return "", 0, 0, false
	}
	if parts[2] == "" || strings.TrimLeft(parts[2], "0123456789") != "" {
		return "", 0, 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	return parts[0], y, n, true
}

// FormatDocumentNumber renders a document number with a suffix padded to
// three digits. Wider suffixes are kept as is.
func FormatDocumentNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// NextDocumentNumber returns the number following the highest suffix found
// among existing for the given prefix and year, or suffix 001 when there is
// none. Entries for other prefixes or years and malformed entries are ignored.
func NextDocumentNumber(existing []string, prefix string, year int) string {
	highest := 0
	for _, s := range existing {
		p, y, n, ok := ParseDocumentNumber(s)
		if !ok || p != prefix || y != year {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return FormatDocumentNumber(prefix, year, highest+1)
}

// NumberPattern is the SQL LIKE pattern matching a prefix/year series.
func NumberPattern(prefix string, year int) string {
	return fmt.Sprintf("%s-%d-%%", prefix, year)
}
