package services

import (
	"testing"
	"time"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCRUD(t *testing.T) {
	f := newFixture(t)
	_, err := f.clients.Create(f.ctx, ClientInput{Email: "not-an-email"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["name"])
	assert.Equal(t, "invalid_email", ve.Fields["email"])

	c := f.client(t)
	_, err = f.clients.Create(f.ctx, ClientInput{Name: "Acme Corp", Email: "ops@acme.test"})
	require.NoError(t, err)

	list, total, err := f.clients.List(f.ctx, "acme", allRows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Acme Corp", list[0].Name)

	up, err := f.clients.Update(f.ctx, c.ID, ClientInput{Name: "Jane Roe", Email: "jane@example.com", ZipCode: "78701"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", up.Name)
	assert.Equal(t, "78701", up.ZipCode)

	require.NoError(t, f.clients.Delete(f.ctx, c.ID))
	_, err = f.clients.Get(f.ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientDeleteBlockedByDocuments(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	f.washAndWax(t, c.ID)

	err := f.clients.Delete(f.ctx, c.ID)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeClientInUse, ce.Code)
}

func TestClientSummary(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	f.washAndWax(t, c.ID)
	inv, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID, Items: []ItemInput{item("A", "1", "200")}})
	require.NoError(t, err)
	f.pay(t, inv.ID, "75")

	sum, err := f.clients.Summary(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.QuoteCount)
	assert.Equal(t, int64(1), sum.InvoiceCount)
	assert.True(t, sum.TotalBilled.Equal(dec("200")))
	assert.True(t, sum.TotalPaid.Equal(dec("75")))
	assert.True(t, sum.OpenBalance.Equal(dec("125")))
}

func TestCatalogValidationAndDelete(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Create(f.ctx, ServiceInput{Name: "Wash", DefaultRate: validation.NewDecimal("10.001")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "too_many_decimals", ve.Fields["default_rate"])

	svc, err := f.catalog.Create(f.ctx, ServiceInput{Name: "Wash", DefaultRate: validation.NewDecimal("10")})
	require.NoError(t, err)
	require.NoError(t, f.catalog.Delete(f.ctx, svc.ID))
	assert.ErrorIs(t, f.catalog.Delete(f.ctx, svc.ID), ErrNotFound)
}

func TestRecordSend(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	q := f.washAndWax(t, c.ID)

	log := &models.EmailLog{ClientID: &c.ID, QuoteID: &q.ID, EmailType: models.EmailTypeQuote, Subject: "s", Body: "<p>b</p>", Recipient: c.Email}
	require.NoError(t, f.emails.RecordSend(f.ctx, log))
	assert.NotZero(t, log.ID)
	assert.False(t, log.SentAt.IsZero())

	got, err := f.quotes.Get(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusSent, got.Status)

	// decided quotes keep their status when re-sent
	_, err = f.quotes.Update(f.ctx, q.ID, QuoteInput{Status: models.QuoteStatusAccepted})
	require.NoError(t, err)
	again := &models.EmailLog{QuoteID: &q.ID, EmailType: models.EmailTypeQuote, Recipient: c.Email}
	require.NoError(t, f.emails.RecordSend(f.ctx, again))
	got, _ = f.quotes.Get(f.ctx, q.ID)
	assert.Equal(t, models.QuoteStatusAccepted, got.Status)

	require.NoError(t, f.emails.RecordDeliveryError(f.ctx, again.ID, "smtp down"))
	stored, err := f.emails.Get(f.ctx, again.ID)
	require.NoError(t, err)
	assert.False(t, stored.Delivered())

	logs, total, err := f.emails.List(f.ctx, EmailFilter{Type: models.EmailTypeQuote, ClientID: c.ID}, allRows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, log.ID, logs[0].ID)

	missing := uint(404)
	err = f.emails.RecordSend(f.ctx, &models.EmailLog{InvoiceID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	dash := NewDashboardService(f.db)
	now := time.Now().UTC()
	dash.Now = func() time.Time { return now }
	c := f.client(t)
	f.washAndWax(t, c.ID)

	past := validation.Date{Value: now.AddDate(0, 0, -40), Set: true}
	due := validation.Date{Value: now.AddDate(0, 0, -10), Set: true}
	late, err := f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID, Status: models.InvoiceStatusSent, DateIssued: past, DueDate: due, Items: []ItemInput{item("A", "1", "300")}})
	require.NoError(t, err)
	_, err = f.invoices.Create(f.ctx, InvoiceInput{ClientID: c.ID, Items: []ItemInput{item("B", "1", "50")}})
	require.NoError(t, err)
	f.pay(t, late.ID, "100")

	st, err := dash.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalClients)
	assert.Equal(t, int64(1), st.ActiveQuotes)
	assert.True(t, st.OutstandingAmount.Equal(dec("250")), st.OutstandingAmount.String())
	assert.True(t, st.MonthlyRevenue.Equal(dec("100")))
	assert.Equal(t, int64(1), st.OverdueInvoices)
}

func TestUserRegistrationAndRoles(t *testing.T) {
	f := newFixture(t)
	users := NewUserService(f.db)

	_, err := users.Register(f.ctx, SignupInput{Email: "bad", Password: "short"}, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_email", ve.Fields["email"])
	assert.Equal(t, "too_short", ve.Fields["password"])

	first, err := users.Register(f.ctx, SignupInput{Email: "Owner@Example.com", Password: "longenough"}, models.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, "owner@example.com", first.Email)

	second, err := users.Register(f.ctx, SignupInput{Email: "clerk@example.com", Password: "longenough"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, second.Role)

	_, err = users.Register(f.ctx, SignupInput{Email: "clerk@example.com", Password: "longenough"}, "")
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeEmailTaken, ce.Code)

	u, err := users.Authenticate(f.ctx, "OWNER@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, first.ID, u.ID)
	_, err = users.Authenticate(f.ctx, "owner@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.UpdateRole(f.ctx, first.ID, models.RoleStaff)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeLastAdmin, ce.Code)

	promoted, err := users.UpdateRole(f.ctx, second.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())
	_, err = users.UpdateRole(f.ctx, first.ID, "root")
	require.ErrorAs(t, err, &ve)

	assert.True(t, users.Exists(f.ctx, first.ID))
	assert.False(t, users.Exists(f.ctx, 999))
}
