// Package mail delivers rendered messages through SendGrid, or to the log in
// development.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

//go:generate mockgen -source=mail.go -destination=mock_sender.go -package=mail

// Sender hands a message to a transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Address is a display name and an email address.
type Address struct {
	Name  string
	Email string
}

// Attachment is a file sent with the message. Inline attachments are
// referenced from the HTML as cid:<ContentID>.
type Attachment struct {
	ContentID string
	Filename  string
	MIMEType  string
	Data      []byte
}

// Message is a rendered email.
type Message struct {
	From    Address
	To      Address
	Subject string
	HTML    string
	Text    string
	Inline  []Attachment
}

// LogoContentID is the content id the templates use for the company logo.
const LogoContentID = "company_logo"

// LoadLogo reads the logo file for inline use. An empty path yields no attachment.
func LoadLogo(path string) (*Attachment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	return &Attachment{
		ContentID: LogoContentID,
		Filename:  filepath.Base(path),
		MIMEType:  http.DetectContentType(data),
		Data:      data,
	}, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{Logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.InfoContext(ctx, "email not delivered (log transport)",
		"to", msg.To.Email,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML),
		"attachments", len(msg.Inline),
	)
	return nil
}
