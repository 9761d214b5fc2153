package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

// PaymentInput records or edits a payment. On update, zero values keep the
// stored field; a different InvoiceID moves the payment.
type PaymentInput struct {
	InvoiceID uint               `json:"invoice_id"`
	Amount    validation.Decimal `json:"amount"`
	Date      validation.Date    `json:"date"`
	Method    string             `json:"method"`
	Reference *string            `json:"reference"`
	Notes     *string            `json:"notes"`
}

func (in PaymentInput) validate(create bool) error {
	v := validation.Violations{}
	if create {
		validation.RequiredID("invoice_id", in.InvoiceID, v)
		validation.RequiredDecimal("amount", in.Amount, v)
	}
	validation.Positive("amount", in.Amount, v)
	validation.Range("amount", in.Amount, validation.MoneyDigits, v)
	validation.MaxScale("amount", in.Amount, billing.MoneyPlaces, v)
	validation.DateSyntax("date", in.Date, v)
	validation.MaxLen("method", in.Method, 50, v)
	if in.Reference != nil {
		validation.MaxLen("reference", *in.Reference, 100, v)
	}
	return check(v)
}

// PaymentFilter narrows List.
type PaymentFilter struct {
	Method    string
	InvoiceID uint
	// Client matches the client name of the paid invoice.
	Client    string
	StartDate *time.Time
}

// PaymentService records payments and keeps invoice statuses in step with
// the recomputed balance.
type PaymentService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db, Now: time.Now}
}

func (s *PaymentService) List(ctx context.Context, f PaymentFilter, p httpx.Page) ([]models.Payment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.Method != "" {
		q = q.Where("method = ?", f.Method)
	}
	if f.InvoiceID != 0 {
		q = q.Where("invoice_id = ?", f.InvoiceID)
	}
	if f.StartDate != nil {
		q = q.Where("date >= ?", *f.StartDate)
	}
	if strings.TrimSpace(f.Client) != "" {
		clients := s.db.Model(&models.Client{}).Select("id").Where("LOWER(name) LIKE ?", like(f.Client))
		q = q.Where("invoice_id IN (?)", s.db.Model(&models.Invoice{}).Select("id").Where("client_id IN (?)", clients))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Payment
	err := q.Scopes(paginate(p)).Preload("Invoice.Client").
		Order("date DESC").Order("id DESC").Find(&out).Error
	return out, total, err
}

func (s *PaymentService) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var pay models.Payment
	if err := s.db.WithContext(ctx).Preload("Invoice.Client").First(&pay, id).Error; err != nil {
		return nil, notFound(err, "payment")
	}
	return &pay, nil
}

// Create records a payment and re-derives the invoice status. Payments on a
// settled invoice are accepted; the negative balance flags the overpayment.
func (s *PaymentService) Create(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvoiceForPayment(tx, in.InvoiceID)
		if err != nil {
			return err
		}
		pay := models.Payment{
			InvoiceID: inv.ID,
			Amount:    in.Amount.Value,
			Date:      today(s.Now()),
			Method:    strings.TrimSpace(in.Method),
		}
		if in.Date.Set {
			pay.Date = in.Date.Value
		}
		if in.Reference != nil {
			pay.Reference = strings.TrimSpace(*in.Reference)
		}
		if in.Notes != nil {
			pay.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := tx.Create(&pay).Error; err != nil {
			return err
		}
		id = pay.ID
		return rederiveInvoiceStatus(tx, inv.ID, billing.PaymentRecorded)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update edits a payment. When it moves to another invoice both invoices are
// re-derived: the old one as if the payment was removed.
func (s *PaymentService) Update(ctx context.Context, id uint, in PaymentInput) (*models.Payment, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pay models.Payment
		if err := tx.First(&pay, id).Error; err != nil {
			return notFound(err, "payment")
		}
		oldInvoice := pay.InvoiceID
		if in.InvoiceID != 0 && in.InvoiceID != pay.InvoiceID {
			if _, err := loadInvoiceForPayment(tx, in.InvoiceID); err != nil {
				return err
			}
			pay.InvoiceID = in.InvoiceID
		}
		if in.Amount.Set {
			pay.Amount = in.Amount.Value
		}
		if in.Date.Set {
			pay.Date = in.Date.Value
		}
		if in.Method != "" {
			pay.Method = strings.TrimSpace(in.Method)
		}
		if in.Reference != nil {
			pay.Reference = strings.TrimSpace(*in.Reference)
		}
		if in.Notes != nil {
			pay.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := tx.Save(&pay).Error; err != nil {
			return err
		}
		if oldInvoice != pay.InvoiceID {
			if err := rederiveInvoiceStatus(tx, oldInvoice, billing.PaymentRemoved); err != nil {
				return err
			}
		}
		return rederiveInvoiceStatus(tx, pay.InvoiceID, billing.PaymentChanged)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a payment and re-derives its invoice: a paid invoice whose
// balance turns positive goes back to sent.
func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pay models.Payment
		if err := tx.First(&pay, id).Error; err != nil {
			return notFound(err, "payment")
		}
		if err := tx.Delete(&pay).Error; err != nil {
			return err
		}
		return rederiveInvoiceStatus(tx, pay.InvoiceID, billing.PaymentRemoved)
	})
}

func loadInvoiceForPayment(tx *gorm.DB, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := tx.Preload("Payments").First(&inv, id).Error; err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}

// rederiveInvoiceStatus recomputes the balance from stored payments and
// applies the payment status rule.
func rederiveInvoiceStatus(tx *gorm.DB, invoiceID uint, ev billing.PaymentEvent) error {
	inv, err := loadInvoiceForPayment(tx, invoiceID)
	if err != nil {
		return err
	}
	bal := billing.Balance(inv.Total, inv.PaymentAmounts())
	next := billing.StatusAfterPayment(inv.Status, bal, ev)
	if next == inv.Status {
		return nil
	}
	return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Update("status", next).Error
}
