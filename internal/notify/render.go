package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Company identifies the sender on every message.
type Company struct {
	Name  string
	Phone string
	Email string
}

// Rendered is a message ready for the transport.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type view struct {
	Title   string
	Company Company
	Doc     billing.Document
	Message string
	HasLogo bool
	LogoCID string
}

// Renderer turns documents into email bodies. Quote and invoice share one
// layout; only the summary block differs.
type Renderer struct {
	Company Company
	HasLogo bool

	byKind map[models.EmailType]*template.Template
}

var funcs = template.FuncMap{
	"money": billing.FormatMoney,
	"qty":   billing.FormatQuantity,
	"date":  billing.FormatDate,
	"deref": func(t *time.Time) time.Time { return *t },
}

func NewRenderer(company Company, hasLogo bool) (*Renderer, error) {
	r := &Renderer{Company: company, HasLogo: hasLogo, byKind: map[models.EmailType]*template.Template{}}
	for kind, file := range map[models.EmailType]string{
		models.EmailTypeQuote:   "templates/quote.html",
		models.EmailTypeInvoice: "templates/invoice.html",
	} {
		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.byKind[kind] = t
	}
	return r, nil
}

// Subject returns the subject line for doc.
func (r *Renderer) Subject(doc billing.Document) string {
	if doc.IsInvoice() {
		return fmt.Sprintf("Invoice #%s from %s", doc.Number, r.Company.Name)
	}
	return fmt.Sprintf("Your Quote #%s from %s", doc.Number, r.Company.Name)
}

// Render builds the subject, HTML and plain text of doc. message is an
// optional note from the operator shown above the summary.
func (r *Renderer) Render(doc billing.Document, message string) (Rendered, error) {
	t, ok := r.byKind[doc.Kind]
	if !ok {
		return Rendered{}, fmt.Errorf("no template for %q", doc.Kind)
	}
	title := "Quote"
	if doc.IsInvoice() {
		title = "Invoice"
	}
	var buf bytes.Buffer
	err := t.ExecuteTemplate(&buf, "layout", view{
		Title:   title,
		Company: r.Company,
		Doc:     doc,
		Message: strings.TrimSpace(message),
		HasLogo: r.HasLogo,
		LogoCID: mail.LogoContentID,
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s: %w", doc.Kind, err)
	}
	return Rendered{
		Subject: r.Subject(doc),
		HTML:    buf.String(),
		Text:    plainText(title, r.Company.Name, doc),
	}, nil
}

func plainText(title, company string, doc billing.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%s from %s\n\n", title, doc.Number, company)
	for _, l := range doc.Lines {
		fmt.Fprintf(&b, "%s  %s x %s = %s\n", l.Description, billing.FormatQuantity(l.Quantity),
			billing.FormatMoney(l.UnitPrice), billing.FormatMoney(l.Total))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", billing.FormatMoney(doc.Total))
	if doc.IsInvoice() {
		fmt.Fprintf(&b, "Balance due: %s\n", billing.FormatMoney(doc.Balance))
	}
	return b.String()
}
