// Package pdf renders quotes and invoices as PDF documents.
package pdf

import (
	"fmt"

	"github.com/diewo77/go-crm/internal/billing"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Company is printed in the page header.
type Company struct {
	Name    string
	Phone   string
	Email   string
	Logo    []byte
	LogoExt extension.Type
}

// Renderer builds PDFs for one company.
type Renderer struct {
	Company Company
}

func NewRenderer(c Company) *Renderer {
	return &Renderer{Company: c}
}

// LogoExtension maps a MIME type to the image kinds maroto embeds.
func LogoExtension(mimeType string) (extension.Type, bool) {
	switch mimeType {
	case "image/png":
		return extension.Png, true
	case "image/jpeg":
		return extension.Jpg, true
	}
	return "", false
}

var (
	bold      = props.Text{Style: fontstyle.Bold}
	right     = props.Text{Align: align.Right}
	boldRight = props.Text{Style: fontstyle.Bold, Align: align.Right}
	muted     = props.Text{Size: 9, Color: &props.Color{Red: 100, Green: 116, Blue: 139}}
)

// Invoice renders an invoice with its paid amount and balance.
func (r *Renderer) Invoice(doc billing.Document) ([]byte, error) {
	if !doc.IsInvoice() {
		return nil, fmt.Errorf("document %s is not an invoice", doc.Number)
	}
	return r.render(doc, "INVOICE", "Due date")
}

// Quote renders a quote.
func (r *Renderer) Quote(doc billing.Document) ([]byte, error) {
	if doc.IsInvoice() {
		return nil, fmt.Errorf("document %s is not a quote", doc.Number)
	}
	return r.render(doc, "QUOTE", "Valid until")
}

func (r *Renderer) render(doc billing.Document, title, untilLabel string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRows(r.header(title)...)
	m.AddRows(line.NewRow(4))
	m.AddRows(parties(doc, untilLabel)...)
	m.AddRows(line.NewRow(4))
	m.AddRows(items(doc)...)
	m.AddRows(totals(doc)...)
	if doc.Notes != "" {
		m.AddRows(
			text.NewRow(8, "Notes", props.Text{Top: 3, Style: fontstyle.Bold}),
			text.NewRow(12, doc.Notes),
		)
	}
	m.AddRows(text.NewRow(10, "Thank you for your business!", props.Text{Top: 5, Align: align.Center, Style: fontstyle.Italic}))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate %s pdf: %w", doc.Number, err)
	}
	return out.GetBytes(), nil
}

func (r *Renderer) header(title string) []core.Row {
	c := r.Company
	left := col.New(8)
	if len(c.Logo) > 0 && c.LogoExt != "" {
		left = image.NewFromBytesCol(8, c.Logo, c.LogoExt, props.Rect{Left: 0, Percent: 90})
	} else {
		left.Add(text.New(c.Name, props.Text{Size: 16, Style: fontstyle.Bold}))
	}
	titleCol := text.NewCol(4, title, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Right})

	rows := []core.Row{row.New(20).Add(left, titleCol)}
	contact := c.Phone
	if c.Email != "" {
		if contact != "" {
			contact += " | "
		}
		contact += c.Email
	}
	if contact != "" {
		rows = append(rows, text.NewRow(6, contact, muted))
	}
	return rows
}

func parties(doc billing.Document, untilLabel string) []core.Row {
	until := ""
	if doc.Until != nil {
		until = billing.FormatDate(*doc.Until)
	}
	rows := []core.Row{
		row.New(6).Add(
			text.NewCol(6, "Bill to", bold),
			text.NewCol(3, "Number", bold),
			text.NewCol(3, doc.Number, right),
		),
		row.New(6).Add(
			text.NewCol(6, doc.Client.Name),
			text.NewCol(3, "Date", bold),
			text.NewCol(3, billing.FormatDate(doc.Date), right),
		),
		row.New(6).Add(
			text.NewCol(6, doc.Client.Email),
			text.NewCol(3, untilLabel, bold),
			text.NewCol(3, until, right),
		),
	}
	if addr := doc.Client.FullAddress(); addr != "" {
		rows = append(rows, row.New(14).Add(text.NewCol(6, addr), col.New(6)))
	}
	return rows
}

func items(doc billing.Document) []core.Row {
	rows := []core.Row{
		row.New(8).Add(
			text.NewCol(6, "Description", bold),
			text.NewCol(2, "Qty", boldRight),
			text.NewCol(2, "Unit price", boldRight),
			text.NewCol(2, "Amount", boldRight),
		),
	}
	for _, l := range doc.Lines {
		rows = append(rows, row.New(7).Add(
			text.NewCol(6, l.Description),
			text.NewCol(2, billing.FormatQuantity(l.Quantity), right),
			text.NewCol(2, billing.FormatMoney(l.UnitPrice), right),
			text.NewCol(2, billing.FormatMoney(l.Total), right),
		))
	}
	return append(rows, line.NewRow(4))
}

func totals(doc billing.Document) []core.Row {
	entry := func(label, value string, p props.Text) core.Row {
		return row.New(7).Add(col.New(6), text.NewCol(3, label, bold), text.NewCol(3, value, p))
	}
	rows := []core.Row{entry("Total", billing.FormatMoney(doc.Total), boldRight)}
	if doc.IsInvoice() {
		rows = append(rows,
			entry("Paid", billing.FormatMoney(doc.Paid), right),
			entry("Balance due", billing.FormatMoney(doc.Balance), boldRight),
		)
	}
	return rows
}
