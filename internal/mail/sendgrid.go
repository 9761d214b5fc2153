package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	logger *slog.Logger
}

func NewSendGridSender(apiKey string, logger *slog.Logger) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), logger: logger}, nil
}

// Build converts a Message into the SendGrid payload.
func Build(msg Message) (*sgmail.SGMailV3, error) {
	if msg.From.Email == "" {
		return nil, errors.New("from address is empty")
	}
	if msg.To.Email == "" {
		return nil, errors.New("to address is empty")
	}
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(msg.From.Name, msg.From.Email))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Email))
	m.AddPersonalizations(p)

	// SendGrid wants text/plain before text/html.
	if msg.Text != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	}
	m.AddContent(sgmail.NewContent("text/html", msg.HTML))

	for _, att := range msg.Inline {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Data))
		a.SetType(att.MIMEType)
		a.SetFilename(att.Filename)
		a.SetDisposition("inline")
		a.SetContentID(att.ContentID)
		m.AddAttachment(a)
	}
	return m, nil
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	payload, err := Build(msg)
	if err != nil {
		return err
	}
	resp, err := s.client.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.ErrorContext(ctx, "sendgrid rejected message", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}
	s.logger.InfoContext(ctx, "mail sent", "status", resp.StatusCode, "to", msg.To.Email, "subject", msg.Subject)
	return nil
}
