package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClientInput is the writable part of a client.
type ClientInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

func (in ClientInput) validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("name", in.Name, 100, v)
	validation.MaxLen("email", in.Email, 100, v)
	validation.MaxLen("phone", in.Phone, 20, v)
	validation.MaxLen("address1", in.Address1, 100, v)
	validation.MaxLen("address2", in.Address2, 100, v)
	validation.MaxLen("city", in.City, 50, v)
	validation.MaxLen("state", in.State, 50, v)
	validation.MaxLen("zip_code", in.ZipCode, 20, v)
	return check(v)
}

func (in ClientInput) apply(c *models.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address1 = strings.TrimSpace(in.Address1)
	c.Address2 = strings.TrimSpace(in.Address2)
	c.City = strings.TrimSpace(in.City)
	c.State = strings.TrimSpace(in.State)
	c.ZipCode = strings.TrimSpace(in.ZipCode)
}

// ClientSummary is a client with its document counts and money position.
type ClientSummary struct {
	Client       models.Client   `json:"client"`
	QuoteCount   int64           `json:"quote_count"`
	InvoiceCount int64           `json:"invoice_count"`
	TotalBilled  decimal.Decimal `json:"total_billed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	OpenBalance  decimal.Decimal `json:"open_balance"`
}

type ClientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db}
}

// List returns clients ordered by name, optionally filtered by a name search.
func (s *ClientService) List(ctx context.Context, search string, p httpx.Page) ([]models.Client, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Client{})
	if strings.TrimSpace(search) != "" {
		q = q.Where("LOWER(name) LIKE ?", like(search))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Client
	err := q.Scopes(paginate(p)).Order("name").Order("id").Find(&out).Error
	return out, total, err
}

func (s *ClientService) Get(ctx context.Context, id uint) (*models.Client, error) {
	return loadClient(s.db.WithContext(ctx), id)
}

func loadClient(tx *gorm.DB, id uint) (*models.Client, error) {
	var c models.Client
	if err := tx.First(&c, id).Error; err != nil {
		return nil, notFound(err, "client")
	}
	return &c, nil
}

func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var c models.Client
	in.apply(&c)
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ClientService) Update(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := loadClient(tx, id)
		if err != nil {
			return err
		}
		in.apply(c)
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

// Delete removes a client that owns no quotes or invoices. Email log rows
// referencing it are detached.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadClient(tx, id); err != nil {
			return err
		}
		var quotes, invoices int64
		if err := tx.Model(&models.Quote{}).Where("client_id = ?", id).Count(&quotes).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
			return err
		}
		if quotes > 0 || invoices > 0 {
			return &ConflictError{Code: CodeClientInUse, Message: "client still has quotes or invoices"}
		}
		if err := tx.Model(&models.EmailLog{}).Where("client_id = ?", id).Update("client_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Client{}, id).Error
	})
}

// Summary aggregates a client's documents and payments.
func (s *ClientService) Summary(ctx context.Context, id uint) (*ClientSummary, error) {
	db := s.db.WithContext(ctx)
	c, err := loadClient(db, id)
	if err != nil {
		return nil, err
	}
	sum := &ClientSummary{Client: *c}
	if err := db.Model(&models.Quote{}).Where("client_id = ?", id).Count(&sum.QuoteCount).Error; err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	if err := db.Where("client_id = ?", id).Preload("Payments").Find(&invoices).Error; err != nil {
		return nil, err
	}
	sum.InvoiceCount = int64(len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if inv.Total.Valid {
			sum.TotalBilled = sum.TotalBilled.Add(inv.Total.Decimal)
		}
		for _, p := range inv.Payments {
			sum.TotalPaid = sum.TotalPaid.Add(p.Amount)
		}
		if bal := billing.Balance(inv.Total, inv.PaymentAmounts()); bal.IsPositive() {
			sum.OpenBalance = sum.OpenBalance.Add(bal)
		}
	}
	return sum, nil
}
