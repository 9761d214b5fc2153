package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceInput creates or updates an invoice; see QuoteInput for update rules.
type InvoiceInput struct {
	ClientID     uint                 `json:"client_id"`
	DateIssued   validation.Date      `json:"date_issued"`
	DueDate      validation.Date      `json:"due_date"`
	Status       models.InvoiceStatus `json:"status"`
	Notes        *string              `json:"notes"`
	Items        []ItemInput          `json:"items"`
	DeletedItems []uint               `json:"deleted_items"`
}

func (in InvoiceInput) validate(create bool) error {
	v := validation.Violations{}
	if create {
		validation.RequiredID("client_id", in.ClientID, v)
	}
	validation.DateSyntax("date_issued", in.DateIssued, v)
	validation.DateSyntax("due_date", in.DueDate, v)
	if in.Status != "" && !in.Status.Valid() {
		v.Add("status", "invalid_status")
	}
	if in.DateIssued.Set && in.DueDate.Set && in.DueDate.Value.Before(in.DateIssued.Value) {
		v.Add("due_date", "before_date_issued")
	}
	for i, it := range in.Items {
		it.validate(fmt.Sprintf("items[%d].", i), v)
	}
	return check(v)
}

// InvoiceView is an invoice with its computed money position.
type InvoiceView struct {
	models.Invoice
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
	PastDue    bool            `json:"past_due"`
}

func newInvoiceView(inv models.Invoice, now time.Time) InvoiceView {
	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	return InvoiceView{
		Invoice:    inv,
		AmountPaid: paid.Round(billing.MoneyPlaces),
		Balance:    billing.Balance(inv.Total, inv.PaymentAmounts()),
		PastDue:    inv.IsPastDue(now),
	}
}

// InvoiceFilter narrows List.
type InvoiceFilter struct {
	Status   models.InvoiceStatus
	ClientID uint
	// Search matches the invoice number.
	Search string
}

type InvoiceService struct {
	db       *gorm.DB
	numbers  *NumberAllocator
	TermDays int
	Now      func() time.Time
}

func NewInvoiceService(db *gorm.DB, numbers *NumberAllocator) *InvoiceService {
	return &InvoiceService{db: db, numbers: numbers, TermDays: DefaultTermDays, Now: time.Now}
}

func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter, p httpx.Page) ([]InvoiceView, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if strings.TrimSpace(f.Search) != "" {
		q = q.Where("LOWER(invoice_number) LIKE ?", like(f.Search))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Invoice
	err := q.Scopes(paginate(p)).Preload("Client").Preload("Payments", orderByID).
		Order("date_issued DESC").Order("id DESC").Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	now := s.Now()
	out := make([]InvoiceView, 0, len(rows))
	for _, inv := range rows {
		out = append(out, newInvoiceView(inv, now))
	}
	return out, total, nil
}

func (s *InvoiceService) Get(ctx context.Context, id uint) (*InvoiceView, error) {
	inv, err := loadInvoice(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	v := newInvoiceView(*inv, s.Now())
	return &v, nil
}

// Balance returns total minus payments for one invoice.
func (s *InvoiceService) Balance(ctx context.Context, id uint) (decimal.Decimal, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Balance, nil
}

func loadInvoice(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Preload("Client").Preload("Items", orderByID).Preload("Payments", orderByID).First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}

func (s *InvoiceService) newInvoice(tx *gorm.DB, clientID uint, issued validation.Date, due validation.Date) (models.Invoice, error) {
	number, err := s.numbers.Next(tx, "invoices", "invoice_number", billing.InvoicePrefix)
	if err != nil {
		return models.Invoice{}, err
	}
	date := today(s.Now())
	if issued.Set {
		date = issued.Value
	}
	inv := models.Invoice{
		ClientID:      clientID,
		InvoiceNumber: number,
		DateIssued:    date,
		DueDate:       due.Ptr(),
		Status:        models.InvoiceStatusDraft,
		Total:         billing.Money(decimal.Zero),
	}
	if inv.DueDate == nil {
		inv.DueDate = addDays(date, s.TermDays)
	}
	return inv, nil
}

// Create stores a new invoice with the next INV- number of the year.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*InvoiceView, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	var id uint
	err := createWithNumber(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := loadClient(tx, in.ClientID); err != nil {
			return err
		}
		inv, err := s.newInvoice(tx, in.ClientID, in.DateIssued, in.DueDate)
		if err != nil {
			return err
		}
		if in.Status != "" {
			inv.Status = in.Status
		}
		if in.Notes != nil {
			inv.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		if err := upsertInvoiceItems(tx, inv.ID, in.Items, nil); err != nil {
			return err
		}
		id = inv.ID
		return recomputeInvoiceTotal(tx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// CreateFromQuote turns an accepted quote into a draft invoice, copying the
// client, notes, items and total unchanged. A quote is invoiced at most once.
func (s *InvoiceService) CreateFromQuote(ctx context.Context, quoteID uint) (*InvoiceView, error) {
	var id uint
	err := createWithNumber(ctx, s.db, func(tx *gorm.DB) error {
		q, err := loadQuote(tx, quoteID)
		if err != nil {
			return err
		}
		if q.Invoice != nil {
			return &ConflictError{Code: CodeQuoteAlreadyInvoiced, Message: "quote already has an invoice"}
		}
		if !billing.CanInvoice(q.Status) {
			return invalid("status", "quote_not_accepted")
		}
		inv, err := s.newInvoice(tx, q.ClientID, validation.Date{}, validation.Date{})
		if err != nil {
			return err
		}
		inv.QuoteID = &q.ID
		inv.Notes = q.Notes
		inv.Total = q.Total
		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		for _, qi := range q.Items {
			it := models.InvoiceItem{
				InvoiceID:   inv.ID,
				Description: qi.Description,
				Quantity:    qi.Quantity,
				UnitPrice:   qi.UnitPrice,
				LineTotal:   qi.LineTotal,
			}
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
		}
		id = inv.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update changes header fields, checks the status transition and upserts items.
func (s *InvoiceService) Update(ctx context.Context, id uint, in InvoiceInput) (*InvoiceView, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			return notFound(err, "invoice")
		}
		if in.Status != "" && !billing.CanTransitionInvoice(inv.Status, in.Status) {
			return invalid("status", "invalid_transition")
		}
		updates := map[string]any{}
		if in.ClientID != 0 && in.ClientID != inv.ClientID {
			if _, err := loadClient(tx, in.ClientID); err != nil {
				return err
			}
			updates["client_id"] = in.ClientID
		}
		if in.DateIssued.Set {
			updates["date_issued"] = in.DateIssued.Value
		}
		if in.DueDate.Set {
			updates["due_date"] = in.DueDate.Value
		}
		if in.Status != "" {
			updates["status"] = in.Status
		}
		if in.Notes != nil {
			updates["notes"] = strings.TrimSpace(*in.Notes)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := upsertInvoiceItems(tx, id, in.Items, in.DeletedItems); err != nil {
			return err
		}
		if err := recomputeInvoiceTotal(tx, id); err != nil {
			return err
		}
		if len(in.Items) == 0 && len(in.DeletedItems) == 0 {
			return nil
		}
		return rederiveAfterItemChange(tx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the invoice with its items and payments; email log rows are detached.
func (s *InvoiceService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Invoice{}, id).Error; err != nil {
			return notFound(err, "invoice")
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.EmailLog{}).Where("invoice_id = ?", id).Update("invoice_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, id).Error
	})
}

func (s *InvoiceService) AddItem(ctx context.Context, invoiceID uint, in ItemInput) (*InvoiceView, error) {
	in.ID = 0
	return s.Update(ctx, invoiceID, InvoiceInput{Items: []ItemInput{in}})
}

func (s *InvoiceService) UpdateItem(ctx context.Context, invoiceID, itemID uint, in ItemInput) (*InvoiceView, error) {
	in.ID = itemID
	return s.Update(ctx, invoiceID, InvoiceInput{Items: []ItemInput{in}})
}

func (s *InvoiceService) RemoveItem(ctx context.Context, invoiceID, itemID uint) (*InvoiceView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Invoice{}, invoiceID).Error; err != nil {
			return notFound(err, "invoice")
		}
		res := tx.Where("id = ? AND invoice_id = ?", itemID, invoiceID).Delete(&models.InvoiceItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "invoice item")
		}
		if err := recomputeInvoiceTotal(tx, invoiceID); err != nil {
			return err
		}
		return rederiveAfterItemChange(tx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, invoiceID)
}

// MarkSent moves a draft invoice to sent without emailing it.
func (s *InvoiceService) MarkSent(ctx context.Context, id uint) (*InvoiceView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			return notFound(err, "invoice")
		}
		return tx.Model(&inv).Update("status", billing.InvoiceStatusAfterSend(inv.Status)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func upsertInvoiceItems(tx *gorm.DB, invoiceID uint, items []ItemInput, deleted []uint) error {
	for _, in := range items {
		desc, qty, price, err := resolveItem(tx, in)
		if err != nil {
			return err
		}
		if in.ID == 0 {
			quantity, unit, total := lineAmounts(qty, price)
			if err := checkAmount("line_total", total.Decimal); err != nil {
				return err
			}
			it := models.InvoiceItem{InvoiceID: invoiceID, Description: desc, Quantity: quantity, UnitPrice: unit.Decimal, LineTotal: total}
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
			continue
		}
		var it models.InvoiceItem
		if err := tx.Where("id = ? AND invoice_id = ?", in.ID, invoiceID).First(&it).Error; err != nil {
			return notFound(err, "invoice item")
		}
		if desc != "" {
			it.Description = desc
		}
		if in.Quantity.Set {
			it.Quantity = billing.Money(qty)
		}
		if in.UnitPrice.Set || in.ServiceID != 0 {
			it.UnitPrice = price.Round(billing.MoneyPlaces)
		}
		it.LineTotal = billing.Money(billing.LineTotal(it.Quantity, decimalPresent(it.UnitPrice)))
		if err := checkAmount("line_total", it.LineTotal.Decimal); err != nil {
			return err
		}
		if err := tx.Save(&it).Error; err != nil {
			return err
		}
	}
	if len(deleted) > 0 {
		if err := tx.Where("invoice_id = ? AND id IN ?", invoiceID, deleted).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func recomputeInvoiceTotal(tx *gorm.DB, invoiceID uint) error {
	var items []models.InvoiceItem
	if err := tx.Where("invoice_id = ?", invoiceID).Order("id").Find(&items).Error; err != nil {
		return err
	}
	total := billing.Money(billing.DocumentTotal(items))
	if err := checkAmount("total", total.Decimal); err != nil {
		return err
	}
	return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Update("total", total).Error
}

// rederiveAfterItemChange keeps the status of an invoice with payments in
// step with its new total. Invoices without payments keep their status.
func rederiveAfterItemChange(tx *gorm.DB, invoiceID uint) error {
	var n int64
	if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return rederiveInvoiceStatus(tx, invoiceID, billing.TotalChanged)
}
