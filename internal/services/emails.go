package services

import (
	"context"
	"errors"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"gorm.io/gorm"
)

// EmailFilter narrows List.
type EmailFilter struct {
	Type     models.EmailType
	ClientID uint
}

// EmailLogService reads the email audit trail and writes the rows of a send.
// Apart from DeliveryError, rows are never changed once written.
type EmailLogService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewEmailLogService(db *gorm.DB) *EmailLogService {
	return &EmailLogService{db: db, Now: time.Now}
}

func (s *EmailLogService) List(ctx context.Context, f EmailFilter, p httpx.Page) ([]models.EmailLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.EmailLog{})
	if f.Type != "" {
		q = q.Where("email_type = ?", f.Type)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.EmailLog
	err := q.Scopes(paginate(p)).Order("sent_at DESC").Order("id DESC").Find(&out).Error
	return out, total, err
}

func (s *EmailLogService) Get(ctx context.Context, id uint) (*models.EmailLog, error) {
	var l models.EmailLog
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err, "email log")
	}
	return &l, nil
}

// RecordSend writes the audit row of a send about to happen and moves the
// document to its sent status, in one transaction. The log names the
// document through QuoteID or InvoiceID.
func (s *EmailLogService) RecordSend(ctx context.Context, log *models.EmailLog) error {
	if log.SentAt.IsZero() {
		log.SentAt = s.Now().UTC()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case log.QuoteID != nil:
			var q models.Quote
			if err := tx.Select("id", "status").First(&q, *log.QuoteID).Error; err != nil {
				return notFound(err, "quote")
			}
			if err := tx.Create(log).Error; err != nil {
				return err
			}
			if next := billing.StatusAfterSend(q.Status); next != q.Status {
				return tx.Model(&models.Quote{}).Where("id = ?", q.ID).Update("status", next).Error
			}
		case log.InvoiceID != nil:
			var inv models.Invoice
			if err := tx.Select("id", "status").First(&inv, *log.InvoiceID).Error; err != nil {
				return notFound(err, "invoice")
			}
			if err := tx.Create(log).Error; err != nil {
				return err
			}
			if next := billing.InvoiceStatusAfterSend(inv.Status); next != inv.Status {
				return tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("status", next).Error
			}
		default:
			return errors.New("email log names no document")
		}
		return nil
	})
}

// RecordDeliveryError stores the transport failure of a logged send.
func (s *EmailLogService) RecordDeliveryError(ctx context.Context, logID uint, msg string) error {
	if msg == "" {
		msg = "delivery failed"
	}
	return s.db.WithContext(ctx).Model(&models.EmailLog{}).Where("id = ?", logID).
		Update("delivery_error", msg).Error
}
