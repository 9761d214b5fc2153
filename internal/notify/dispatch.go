// Package notify sends quotes and invoices to clients by email and keeps
// the email audit trail in step with what was attempted.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/validation"
)

// CodeClientEmailMissing is returned when the document's client has no address.
const CodeClientEmailMissing = "client_email_missing"

// Dispatcher renders, logs and sends documents.
type Dispatcher struct {
	quotes   *services.QuoteService
	invoices *services.InvoiceService
	emails   *services.EmailLogService
	sender   mail.Sender
	renderer *Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	From mail.Address
	// Logo is attached inline when set.
	Logo *mail.Attachment
}

// Deps groups what a Dispatcher needs.
type Deps struct {
	Quotes   *services.QuoteService
	Invoices *services.InvoiceService
	Emails   *services.EmailLogService
	Sender   mail.Sender
	Renderer *Renderer
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewDispatcher(d Deps, from mail.Address, logo *mail.Attachment) *Dispatcher {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		quotes:   d.Quotes,
		invoices: d.Invoices,
		emails:   d.Emails,
		sender:   d.Sender,
		renderer: d.Renderer,
		metrics:  d.Metrics,
		logger:   logger,
		From:     from,
		Logo:     logo,
	}
}

// SendQuote emails quote id to its client. A draft quote becomes sent;
// accepted, rejected and expired quotes keep their status.
func (d *Dispatcher) SendQuote(ctx context.Context, id uint, message string) (*models.EmailLog, error) {
	q, err := d.quotes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := billing.QuoteDocument(q)
	log := &models.EmailLog{QuoteID: &q.ID}
	return d.send(ctx, doc, log, message)
}

// SendInvoice emails invoice id to its client. A draft invoice becomes sent.
func (d *Dispatcher) SendInvoice(ctx context.Context, id uint, message string) (*models.EmailLog, error) {
	v, err := d.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := billing.InvoiceDocument(&v.Invoice)
	log := &models.EmailLog{InvoiceID: &v.ID}
	return d.send(ctx, doc, log, message)
}

// send writes the audit row and the status change before handing the message
// to the transport. A transport failure is recorded on the row and returned
// as *services.TransportError; the committed changes stay.
func (d *Dispatcher) send(ctx context.Context, doc billing.Document, log *models.EmailLog, message string) (*models.EmailLog, error) {
	to := strings.TrimSpace(doc.Client.Email)
	if to == "" {
		return nil, &services.ValidationError{Fields: validation.Violations{"client_email": CodeClientEmailMissing}}
	}
	out, err := d.renderer.Render(doc, message)
	if err != nil {
		return nil, err
	}

	clientID := doc.Client.ID
	if clientID != 0 {
		log.ClientID = &clientID
	}
	log.EmailType = doc.Kind
	log.Subject = out.Subject
	log.Body = out.HTML
	log.Recipient = to
	if err := d.emails.RecordSend(ctx, log); err != nil {
		return nil, fmt.Errorf("record email: %w", err)
	}

	msg := mail.Message{
		From:    d.From,
		To:      mail.Address{Name: doc.Client.Name, Email: to},
		Subject: out.Subject,
		HTML:    out.HTML,
		Text:    out.Text,
	}
	if d.Logo != nil {
		msg.Inline = append(msg.Inline, *d.Logo)
	}

	if sendErr := d.sender.Send(ctx, msg); sendErr != nil {
		d.metrics.EmailFailed(string(doc.Kind))
		d.logger.ErrorContext(ctx, "email delivery failed",
			"type", doc.Kind, "number", doc.Number, "email_log_id", log.ID, "error", sendErr)
		log.DeliveryError = sendErr.Error()
		if err := d.emails.RecordDeliveryError(ctx, log.ID, log.DeliveryError); err != nil {
			d.logger.ErrorContext(ctx, "record delivery error failed", "email_log_id", log.ID, "error", err)
		}
		return log, &services.TransportError{EmailLogID: log.ID, Err: sendErr}
	}
	d.metrics.EmailSent(string(doc.Kind))
	d.logger.InfoContext(ctx, "email sent", "type", doc.Kind, "number", doc.Number, "to", to)
	return log, nil
}
