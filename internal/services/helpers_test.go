package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var allRows = httpx.Page{Page: 1, Limit: httpx.MaxLimit}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := db.Open(dsn, db.Options{Retries: 1})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb, dsn, db.MigrateAuto))
	return gdb
}

type fixture struct {
	db       *gorm.DB
	clients  *ClientService
	catalog  *CatalogService
	quotes   *QuoteService
	invoices *InvoiceService
	payments *PaymentService
	emails   *EmailLogService
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	numbers := NewNumberAllocator()
	return &fixture{
		db:       gdb,
		clients:  NewClientService(gdb),
		catalog:  NewCatalogService(gdb),
		quotes:   NewQuoteService(gdb, numbers),
		invoices: NewInvoiceService(gdb, numbers),
		payments: NewPaymentService(gdb),
		emails:   NewEmailLogService(gdb),
		ctx:      context.Background(),
	}
}

func (f *fixture) client(t *testing.T) *models.Client {
	t.Helper()
	c, err := f.clients.Create(f.ctx, ClientInput{Name: "Jane Doe", Email: "jane@example.com", City: "Austin", State: "TX"})
	require.NoError(t, err)
	return c
}

func item(desc, qty, price string) ItemInput {
	return ItemInput{Description: desc, Quantity: validation.NewDecimal(qty), UnitPrice: validation.NewDecimal(price)}
}

// washAndWax is the reference quote: 2 x 50.00 + 1 x 30.00.
func (f *fixture) washAndWax(t *testing.T, clientID uint) *models.Quote {
	t.Helper()
	q, err := f.quotes.Create(f.ctx, QuoteInput{
		ClientID: clientID,
		Items:    []ItemInput{item("Wash", "2", "50.00"), item("Wax", "1", "30.00")},
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) accept(t *testing.T, quoteID uint) {
	t.Helper()
	_, err := f.quotes.Update(f.ctx, quoteID, QuoteInput{Status: models.QuoteStatusSent})
	require.NoError(t, err)
	_, err = f.quotes.Update(f.ctx, quoteID, QuoteInput{Status: models.QuoteStatusAccepted})
	require.NoError(t, err)
}

func (f *fixture) pay(t *testing.T, invoiceID uint, amount string) *models.Payment {
	t.Helper()
	p, err := f.payments.Create(f.ctx, PaymentInput{InvoiceID: invoiceID, Amount: validation.NewDecimal(amount), Method: "cash"})
	require.NoError(t, err)
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedNow(year int) func() time.Time {
	return func() time.Time { return time.Date(year, time.June, 15, 10, 0, 0, 0, time.UTC) }
}
