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

// QuoteInput creates or updates a quote. On update, zero values keep the
// stored field; Items are upserted by id and DeletedItems removed.
type QuoteInput struct {
	ClientID     uint               `json:"client_id"`
	DateCreated  validation.Date    `json:"date_created"`
	ValidUntil   validation.Date    `json:"valid_until"`
	Status       models.QuoteStatus `json:"status"`
	Notes        *string            `json:"notes"`
	Items        []ItemInput        `json:"items"`
	DeletedItems []uint             `json:"deleted_items"`
}

func (in QuoteInput) validate(create bool) error {
	v := validation.Violations{}
	if create {
		validation.RequiredID("client_id", in.ClientID, v)
	}
	validation.DateSyntax("date_created", in.DateCreated, v)
	validation.DateSyntax("valid_until", in.ValidUntil, v)
	if in.Status != "" && !in.Status.Valid() {
		v.Add("status", "invalid_status")
	}
	if in.DateCreated.Set && in.ValidUntil.Set && in.ValidUntil.Value.Before(in.DateCreated.Value) {
		v.Add("valid_until", "before_date_created")
	}
	for i, it := range in.Items {
		it.validate(fmt.Sprintf("items[%d].", i), v)
	}
	return check(v)
}

// QuoteFilter narrows List.
type QuoteFilter struct {
	Status   models.QuoteStatus
	ClientID uint
	// Search matches the quote number or the client name.
	Search string
}

type QuoteService struct {
	db           *gorm.DB
	numbers      *NumberAllocator
	ValidityDays int
	Now          func() time.Time
}

func NewQuoteService(db *gorm.DB, numbers *NumberAllocator) *QuoteService {
	return &QuoteService{db: db, numbers: numbers, ValidityDays: DefaultTermDays, Now: time.Now}
}

func (s *QuoteService) List(ctx context.Context, f QuoteFilter, p httpx.Page) ([]models.Quote, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Quote{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if strings.TrimSpace(f.Search) != "" {
		pat := like(f.Search)
		q = q.Where("LOWER(quote_number) LIKE ? OR client_id IN (?)", pat,
			s.db.Model(&models.Client{}).Select("id").Where("LOWER(name) LIKE ?", pat))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Quote
	err := q.Scopes(paginate(p)).Preload("Client").
		Order("date_created DESC").Order("id DESC").Find(&out).Error
	return out, total, err
}

// Get loads a quote with its client, items in insertion order and invoice.
func (s *QuoteService) Get(ctx context.Context, id uint) (*models.Quote, error) {
	return loadQuote(s.db.WithContext(ctx), id)
}

func loadQuote(tx *gorm.DB, id uint) (*models.Quote, error) {
	var q models.Quote
	err := tx.Preload("Client").Preload("Items", orderByID).Preload("Invoice").First(&q, id).Error
	if err != nil {
		return nil, notFound(err, "quote")
	}
	return &q, nil
}

// Create stores a new draft (unless another status is given) quote with the
// next Q- number of the year.
func (s *QuoteService) Create(ctx context.Context, in QuoteInput) (*models.Quote, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	var id uint
	err := createWithNumber(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := loadClient(tx, in.ClientID); err != nil {
			return err
		}
		number, err := s.numbers.Next(tx, "quotes", "quote_number", billing.QuotePrefix)
		if err != nil {
			return err
		}
		created := today(s.Now())
		if in.DateCreated.Set {
			created = in.DateCreated.Value
		}
		q := models.Quote{
			ClientID:    in.ClientID,
			QuoteNumber: number,
			DateCreated: created,
			ValidUntil:  in.ValidUntil.Ptr(),
			Status:      models.QuoteStatusDraft,
			Total:       billing.Money(decimal.Zero),
		}
		if q.ValidUntil == nil {
			q.ValidUntil = addDays(created, s.ValidityDays)
		}
		if in.Status != "" {
			q.Status = in.Status
		}
		if in.Notes != nil {
			q.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := tx.Create(&q).Error; err != nil {
			return err
		}
		if err := upsertQuoteItems(tx, q.ID, in.Items, nil); err != nil {
			return err
		}
		id = q.ID
		return recomputeQuoteTotal(tx, q.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update changes header fields, checks the status transition and upserts
// items. Items can only change while the quote is draft or sent.
func (s *QuoteService) Update(ctx context.Context, id uint, in QuoteInput) (*models.Quote, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := loadQuote(tx, id)
		if err != nil {
			return err
		}
		if (len(in.Items) > 0 || len(in.DeletedItems) > 0) && !q.IsEditable() {
			return &ConflictError{Code: CodeQuoteNotEditable, Message: "quote items can only change while draft or sent"}
		}
		if in.Status != "" && !billing.CanTransitionQuote(q.Status, in.Status) {
			return invalid("status", "invalid_transition")
		}
		updates := map[string]any{}
		if in.ClientID != 0 && in.ClientID != q.ClientID {
			if _, err := loadClient(tx, in.ClientID); err != nil {
				return err
			}
			updates["client_id"] = in.ClientID
		}
		if in.DateCreated.Set {
			updates["date_created"] = in.DateCreated.Value
		}
		if in.ValidUntil.Set {
			updates["valid_until"] = in.ValidUntil.Value
		}
		if in.Status != "" {
			updates["status"] = in.Status
		}
		if in.Notes != nil {
			updates["notes"] = strings.TrimSpace(*in.Notes)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Quote{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		if err := upsertQuoteItems(tx, id, in.Items, in.DeletedItems); err != nil {
			return err
		}
		return recomputeQuoteTotal(tx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the quote and its items. An invoice made from it keeps
// existing without the back-link; email log rows are detached.
func (s *QuoteService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Quote{}, id).Error; err != nil {
			return notFound(err, "quote")
		}
		if err := tx.Where("quote_id = ?", id).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("quote_id = ?", id).Update("quote_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.EmailLog{}).Where("quote_id = ?", id).Update("quote_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quote{}, id).Error
	})
}

// AddItem appends one line and refreshes the total.
func (s *QuoteService) AddItem(ctx context.Context, quoteID uint, in ItemInput) (*models.Quote, error) {
	in.ID = 0
	return s.Update(ctx, quoteID, QuoteInput{Items: []ItemInput{in}})
}

// UpdateItem edits one line and refreshes the total.
func (s *QuoteService) UpdateItem(ctx context.Context, quoteID, itemID uint, in ItemInput) (*models.Quote, error) {
	in.ID = itemID
	return s.Update(ctx, quoteID, QuoteInput{Items: []ItemInput{in}})
}

// RemoveItem deletes one line and refreshes the total.
func (s *QuoteService) RemoveItem(ctx context.Context, quoteID, itemID uint) (*models.Quote, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := loadQuote(tx, quoteID)
		if err != nil {
			return err
		}
		if !q.IsEditable() {
			return &ConflictError{Code: CodeQuoteNotEditable, Message: "quote items can only change while draft or sent"}
		}
		res := tx.Where("id = ? AND quote_id = ?", itemID, quoteID).Delete(&models.QuoteItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound(gorm.ErrRecordNotFound, "quote item")
		}
		return recomputeQuoteTotal(tx, quoteID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, quoteID)
}

// MarkSent moves a draft quote to sent without emailing it.
func (s *QuoteService) MarkSent(ctx context.Context, id uint) (*models.Quote, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Quote
		if err := tx.First(&q, id).Error; err != nil {
			return notFound(err, "quote")
		}
		return tx.Model(&q).Update("status", billing.StatusAfterSend(q.Status)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func upsertQuoteItems(tx *gorm.DB, quoteID uint, items []ItemInput, deleted []uint) error {
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
			it := models.QuoteItem{QuoteID: quoteID, Description: desc, Quantity: quantity, UnitPrice: unit.Decimal, LineTotal: total}
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
			continue
		}
		var it models.QuoteItem
		if err := tx.Where("id = ? AND quote_id = ?", in.ID, quoteID).First(&it).Error; err != nil {
			return notFound(err, "quote item")
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
		if err := tx.Where("quote_id = ? AND id IN ?", quoteID, deleted).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func recomputeQuoteTotal(tx *gorm.DB, quoteID uint) error {
	var items []models.QuoteItem
	if err := tx.Where("quote_id = ?", quoteID).Order("id").Find(&items).Error; err != nil {
		return err
	}
	total := billing.Money(billing.DocumentTotal(items))
	if err := checkAmount("total", total.Decimal); err != nil {
		return err
	}
	return tx.Model(&models.Quote{}).Where("id = ?", quoteID).Update("total", total).Error
}
