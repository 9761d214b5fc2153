package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestQuoteNumbersPerYear(t *testing.T) {
	f := newFixture(t)
	f.quotes.numbers.Now = fixedNow(2024)
	c := f.client(t)

	q1 := f.washAndWax(t, c.ID)
	q2 := f.washAndWax(t, c.ID)
	assert.Equal(t, "Q-2024-001", q1.QuoteNumber)
	assert.Equal(t, "Q-2024-002", q2.QuoteNumber)

	// a gap left by a deleted quote is never refilled below the maximum
	require.NoError(t, f.db.Create(&models.Quote{ClientID: c.ID, QuoteNumber: "Q-2024-009", DateCreated: time.Now()}).Error)
	q3 := f.washAndWax(t, c.ID)
	assert.Equal(t, "Q-2024-010", q3.QuoteNumber)

	f.quotes.numbers.Now = fixedNow(2025)
	q4 := f.washAndWax(t, c.ID)
	assert.Equal(t, "Q-2025-001", q4.QuoteNumber)
}

func TestInvoiceNumbersAndDefaults(t *testing.T) {
	f := newFixture(t)
	f.invoices.numbers.Now = fixedNow(2024)
	f.invoices.Now = fixedNow(2024)
	c := f.client(t)

	inv, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", inv.InvoiceNumber)
	assert.Equal(t, "2024-06-15", inv.DateIssued.Format(validation.DateLayout))
	require.NotNil(t, inv.DueDate)
	assert.Equal(t, "2024-07-15", inv.DueDate.Format(validation.DateLayout))
	assert.True(t, inv.Total.Decimal.IsZero())
}

func TestCreateRetriesOnDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	year := time.Now().Year()

	attempts := 0
	err := createWithNumber(f.ctx, f.db, func(tx *gorm.DB) error {
		attempts++
		number := fmt.Sprintf("Q-%d-001", year)
		if attempts > 2 {
			number = fmt.Sprintf("Q-%d-002", year)
		}
		return tx.Create(&models.Quote{ClientID: c.ID, QuoteNumber: number, DateCreated: time.Now()}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = createWithNumber(f.ctx, f.db, func(tx *gorm.DB) error {
		attempts++
		return tx.Create(&models.Quote{ClientID: c.ID, QuoteNumber: fmt.Sprintf("Q-%d-001", year), DateCreated: time.Now()}).Error
	})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeNumberAllocationFailed, ce.Code)
	assert.Equal(t, maxNumberAttempts, attempts)
}

func TestQuoteItemsKeepTotalsInSync(t *testing.T) {
	f := newFixture(t)
	q := f.washAndWax(t, f.client(t).ID)

	q, err := f.quotes.AddItem(f.ctx, q.ID, item("Sealant", "3", "12.5"))
	require.NoError(t, err)
	require.Len(t, q.Items, 3)
	assert.True(t, q.Items[2].LineTotal.Decimal.Equal(dec("37.50")))
	assert.True(t, q.Total.Decimal.Equal(dec("167.50")))

	q, err = f.quotes.UpdateItem(f.ctx, q.ID, q.Items[0].ID, ItemInput{Quantity: validation.NewDecimal("1")})
	require.NoError(t, err)
	assert.Equal(t, "Wash", q.Items[0].Description)
	assert.True(t, q.Items[0].LineTotal.Decimal.Equal(dec("50")))
	assert.True(t, q.Total.Decimal.Equal(dec("117.50")))

	q, err = f.quotes.RemoveItem(f.ctx, q.ID, q.Items[1].ID)
	require.NoError(t, err)
	assert.Len(t, q.Items, 2)
	assert.True(t, q.Total.Decimal.Equal(dec("87.50")))

	q, err = f.quotes.Update(f.ctx, q.ID, QuoteInput{DeletedItems: []uint{q.Items[0].ID, q.Items[1].ID}})
	require.NoError(t, err)
	assert.Empty(t, q.Items)
	assert.True(t, q.Total.Decimal.IsZero())

	_, err = f.quotes.RemoveItem(f.ctx, q.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemFromCatalog(t *testing.T) {
	f := newFixture(t)
	svc, err := f.catalog.Create(f.ctx, ServiceInput{Name: "House Wash", DefaultRate: validation.NewDecimal("250")})
	require.NoError(t, err)
	q := f.washAndWax(t, f.client(t).ID)

	q, err = f.quotes.AddItem(f.ctx, q.ID, ItemInput{ServiceID: svc.ID, Quantity: validation.NewDecimal("2")})
	require.NoError(t, err)
	last := q.Items[len(q.Items)-1]
	assert.Equal(t, "House Wash", last.Description)
	assert.True(t, last.LineTotal.Decimal.Equal(dec("500")))

	// later catalog edits leave the copied line alone
	_, err = f.catalog.Update(f.ctx, svc.ID, ServiceInput{Name: "Premium Wash", DefaultRate: validation.NewDecimal("300")})
	require.NoError(t, err)
	q, err = f.quotes.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "House Wash", q.Items[len(q.Items)-1].Description)
}

func TestQuoteLockedAfterDecision(t *testing.T) {
	f := newFixture(t)
	q := f.washAndWax(t, f.client(t).ID)
	f.accept(t, q.ID)

	_, err := f.quotes.AddItem(f.ctx, q.ID, item("Extra", "1", "1"))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeQuoteNotEditable, ce.Code)

	_, err = f.quotes.Update(f.ctx, q.ID, QuoteInput{Status: models.QuoteStatusDraft})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_transition", ve.Fields["status"])
}

func TestQuoteValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.quotes.Create(f.ctx, QuoteInput{
		Status: "pending",
		Items:  []ItemInput{{Quantity: validation.NewDecimal("-1"), UnitPrice: validation.Decimal{Invalid: true}}},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["client_id"])
	assert.Equal(t, "invalid_status", ve.Fields["status"])
	assert.Equal(t, "required", ve.Fields["items[0].description"])
	assert.Equal(t, "must_not_be_negative", ve.Fields["items[0].quantity"])
	assert.Equal(t, "invalid_decimal", ve.Fields["items[0].unit_price"])

	_, err = f.quotes.Create(f.ctx, QuoteInput{ClientID: 77})
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.Quote{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAmountsOutOfRange(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	_, err := f.quotes.Create(f.ctx, QuoteInput{
		ClientID: c.ID,
		Items:    []ItemInput{item("Huge", "1e200000", "1"), item("Wide", "1", "123456789.00")},
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "out_of_range", ve.Fields["items[0].quantity"])
	assert.Equal(t, "out_of_range", ve.Fields["items[1].unit_price"])

	_, err = f.quotes.Create(f.ctx, QuoteInput{ClientID: c.ID, Items: []ItemInput{item("Big", "99999999", "2")}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "out_of_range", ve.Fields["line_total"])

	_, err = f.invoices.Create(f.ctx, InvoiceInput{
		ClientID: c.ID,
		Items:    []ItemInput{item("A", "1", "60000000"), item("B", "1", "60000000")},
	})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "out_of_range", ve.Fields["total"])

	var quotes, invoices int64
	require.NoError(t, f.db.Model(&models.Quote{}).Count(&quotes).Error)
	require.NoError(t, f.db.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Zero(t, quotes)
	assert.Zero(t, invoices)
}

func TestDeleteQuoteCascadesItems(t *testing.T) {
	f := newFixture(t)
	q := f.washAndWax(t, f.client(t).ID)
	f.accept(t, q.ID)
	inv, err := f.invoices.CreateFromQuote(f.ctx, q.ID)
	require.NoError(t, err)

	require.NoError(t, f.quotes.Delete(f.ctx, q.ID))
	var items int64
	require.NoError(t, f.db.Model(&models.QuoteItem{}).Where("quote_id = ?", q.ID).Count(&items).Error)
	assert.Zero(t, items)

	got, err := f.invoices.Get(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, got.QuoteID)
	assert.ErrorIs(t, f.quotes.Delete(f.ctx, q.ID), ErrNotFound)
}

func TestDeleteInvoiceCascadesItemsAndPayments(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: f.client(t).ID, Items: []ItemInput{item("A", "1", "10")}})
	require.NoError(t, err)
	f.pay(t, inv.ID, "5")

	require.NoError(t, f.invoices.Delete(f.ctx, inv.ID))
	var items, payments int64
	f.db.Model(&models.InvoiceItem{}).Count(&items)
	f.db.Model(&models.Payment{}).Count(&payments)
	assert.Zero(t, items)
	assert.Zero(t, payments)
}

func TestInvoiceItemsAndTransitions(t *testing.T) {
	f := newFixture(t)
	inv, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: f.client(t).ID})
	require.NoError(t, err)

	inv, err = f.invoices.AddItem(f.ctx, inv.ID, item("Gutter", "4", "19.99"))
	require.NoError(t, err)
	assert.True(t, inv.Total.Decimal.Equal(dec("79.96")))

	inv, err = f.invoices.UpdateItem(f.ctx, inv.ID, inv.Items[0].ID, ItemInput{UnitPrice: validation.NewDecimal("20")})
	require.NoError(t, err)
	assert.True(t, inv.Total.Decimal.Equal(dec("80")))
	assert.True(t, inv.Balance.Equal(dec("80")))

	inv, err = f.invoices.RemoveItem(f.ctx, inv.ID, inv.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, inv.Total.Decimal.IsZero())

	_, err = f.invoices.Update(f.ctx, inv.ID, InvoiceInput{Status: models.InvoiceStatusPaid})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_transition", ve.Fields["status"])
}

func TestInvoiceListFilters(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	a, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID})
	require.NoError(t, err)
	_, err = f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID, Status: models.InvoiceStatusSent})
	require.NoError(t, err)

	all, total, err := f.invoices.List(f.ctx, InvoiceFilter{}, allRows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	drafts, total, err := f.invoices.List(f.ctx, InvoiceFilter{Status: models.InvoiceStatusDraft}, allRows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, a.ID, drafts[0].ID)

	found, _, err := f.invoices.List(f.ctx, InvoiceFilter{Search: a.InvoiceNumber}, allRows)
	require.NoError(t, err)
	require.Len(t, found, 1)
}
