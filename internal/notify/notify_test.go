package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type env struct {
	db       *gorm.DB
	quotes   *services.QuoteService
	invoices *services.InvoiceService
	sender   *mail.MockSender
	dispatch *Dispatcher
	ctx      context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := db.Open(dsn, db.Options{Retries: 1})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb, dsn, db.MigrateAuto))

	ctrl := gomock.NewController(t)
	sender := mail.NewMockSender(ctrl)
	numbers := services.NewNumberAllocator()
	renderer, err := NewRenderer(Company{Name: "Aquaforce Pressure Washing", Phone: "555-0100"}, true)
	require.NoError(t, err)

	e := &env{
		db:       gdb,
		quotes:   services.NewQuoteService(gdb, numbers),
		invoices: services.NewInvoiceService(gdb, numbers),
		sender:   sender,
		ctx:      context.Background(),
	}
	e.dispatch = NewDispatcher(Deps{
		Quotes:   e.quotes,
		Invoices: e.invoices,
		Emails:   services.NewEmailLogService(gdb),
		Sender:   sender,
		Renderer: renderer,
		Metrics:  metrics.New(),
	}, mail.Address{Name: "Billing", Email: "billing@example.com"},
		&mail.Attachment{ContentID: mail.LogoContentID, Filename: "logo.png", MIMEType: "image/png", Data: []byte{1}})
	return e
}

func (e *env) quote(t *testing.T, email string) *models.Quote {
	t.Helper()
	c := models.Client{Name: "Jane Doe", Email: email}
	require.NoError(t, e.db.Create(&c).Error)
	q, err := e.quotes.Create(e.ctx, services.QuoteInput{
		ClientID: c.ID,
		Items: []services.ItemInput{
			{Description: "Wash", Quantity: validation.NewDecimal("2"), UnitPrice: validation.NewDecimal("50.00")},
			{Description: "Wax", Quantity: validation.NewDecimal("1"), UnitPrice: validation.NewDecimal("30.00")},
		},
	})
	require.NoError(t, err)
	return q
}

func (e *env) accept(t *testing.T, id uint) {
	t.Helper()
	_, err := e.quotes.MarkSent(e.ctx, id)
	require.NoError(t, err)
	_, err = e.quotes.Update(e.ctx, id, services.QuoteInput{Status: models.QuoteStatusAccepted})
	require.NoError(t, err)
}

func TestSendQuoteMarksSentAndLogs(t *testing.T) {
	e := newEnv(t)
	q := e.quote(t, "jane@example.com")

	e.sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mail.Message) error {
		assert.Equal(t, "jane@example.com", msg.To.Email)
		assert.Equal(t, "Your Quote #"+q.QuoteNumber+" from Aquaforce Pressure Washing", msg.Subject)
		assert.Contains(t, msg.HTML, "cid:company_logo")
		assert.Contains(t, msg.HTML, "$130.00")
		assert.Contains(t, msg.HTML, "Please call before arriving")
		require.Len(t, msg.Inline, 1)
		return nil
	})

	log, err := e.dispatch.SendQuote(e.ctx, q.ID, "Please call before arriving")
	require.NoError(t, err)
	assert.True(t, log.Delivered())
	assert.Equal(t, models.EmailTypeQuote, log.EmailType)

	got, err := e.quotes.Get(e.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusSent, got.Status)
}

func TestSendQuoteKeepsAcceptedStatus(t *testing.T) {
	e := newEnv(t)
	q := e.quote(t, "jane@example.com")
	e.accept(t, q.ID)

	e.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	_, err := e.dispatch.SendQuote(e.ctx, q.ID, "")
	require.NoError(t, err)

	got, err := e.quotes.Get(e.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusAccepted, got.Status)
}

func TestSendInvoiceTransportFailure(t *testing.T) {
	e := newEnv(t)
	q := e.quote(t, "jane@example.com")
	e.accept(t, q.ID)
	inv, err := e.invoices.CreateFromQuote(e.ctx, q.ID)
	require.NoError(t, err)

	e.sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("sendgrid send failed: status=401"))
	log, err := e.dispatch.SendInvoice(e.ctx, inv.ID, "")

	var te *services.TransportError
	require.ErrorAs(t, err, &te)
	require.NotNil(t, log)
	assert.Equal(t, log.ID, te.EmailLogID)

	var stored models.EmailLog
	require.NoError(t, e.db.First(&stored, log.ID).Error)
	assert.Contains(t, stored.DeliveryError, "status=401")
	assert.Contains(t, stored.Subject, "Invoice #"+inv.InvoiceNumber)

	// The status change is committed before dispatch.
	got, err := e.invoices.Get(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, got.Status)
}

func TestSendRequiresClientEmail(t *testing.T) {
	e := newEnv(t)
	q := e.quote(t, "")

	_, err := e.dispatch.SendQuote(e.ctx, q.ID, "")
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, CodeClientEmailMissing, ve.Fields["client_email"])

	var count int64
	require.NoError(t, e.db.Model(&models.EmailLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendMissingDocument(t *testing.T) {
	e := newEnv(t)
	_, err := e.dispatch.SendInvoice(e.ctx, 999, "")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
