package mail

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	msg := Message{
		From:    Address{Name: "Billing", Email: "billing@example.com"},
		To:      Address{Name: "Jane", Email: "jane@example.com"},
		Subject: "Invoice #INV-2024-001",
		HTML:    `<img src="cid:company_logo">`,
		Text:    "plain",
		Inline:  []Attachment{{ContentID: LogoContentID, Filename: "logo.png", MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	}
	m, err := Build(msg)
	require.NoError(t, err)
	assert.Equal(t, "Invoice #INV-2024-001", m.Subject)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "inline", m.Attachments[0].Disposition)
	assert.Equal(t, LogoContentID, m.Attachments[0].ContentID)
	assert.Equal(t, "AQID", m.Attachments[0].Content)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "jane@example.com", m.Personalizations[0].To[0].Address)
}

func TestBuildRequiresAddresses(t *testing.T) {
	_, err := Build(Message{To: Address{Email: "x@example.com"}})
	assert.Error(t, err)
	_, err = Build(Message{From: Address{Email: "x@example.com"}})
	assert.Error(t, err)
}

func TestNewSendGridSenderNeedsKey(t *testing.T) {
	_, err := NewSendGridSender("", nil)
	assert.Error(t, err)
}

func TestLoadLogo(t *testing.T) {
	att, err := LoadLogo("")
	require.NoError(t, err)
	assert.Nil(t, att)

	path := filepath.Join(t.TempDir(), "logo.png")
	png := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, os.WriteFile(path, png, 0o600))
	att, err = LoadLogo(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.MIMEType)
	assert.Equal(t, "logo.png", att.Filename)

	_, err = LoadLogo(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(nil).Send(context.Background(), Message{Subject: "hi"}))
}
