package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

// ServiceInput is the writable part of a catalog entry.
type ServiceInput struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	DefaultRate validation.Decimal `json:"default_rate"`
}

func (in ServiceInput) validate() error {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 100, v)
	validation.RequiredDecimal("default_rate", in.DefaultRate, v)
	validation.Money("default_rate", in.DefaultRate, v)
	return check(v)
}

// CatalogService manages the service catalog. Line items copy from it and
// never reference it, so edits and deletes do not touch documents.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) List(ctx context.Context, search string, p httpx.Page) ([]models.Service, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Service{})
	if strings.TrimSpace(search) != "" {
		q = q.Where("LOWER(name) LIKE ?", like(search))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []models.Service
	err := q.Scopes(paginate(p)).Order("name").Order("id").Find(&out).Error
	return out, total, err
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Service, error) {
	return loadService(s.db.WithContext(ctx), id)
}

func loadService(tx *gorm.DB, id uint) (*models.Service, error) {
	var svc models.Service
	if err := tx.First(&svc, id).Error; err != nil {
		return nil, notFound(err, "service")
	}
	return &svc, nil
}

func (s *CatalogService) Create(ctx context.Context, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	svc := models.Service{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		DefaultRate: in.DefaultRate.Value.Round(2),
	}
	if err := s.db.WithContext(ctx).Create(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *CatalogService) Update(ctx context.Context, id uint, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Service
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc, err := loadService(tx, id)
		if err != nil {
			return err
		}
		svc.Name = strings.TrimSpace(in.Name)
		svc.Description = strings.TrimSpace(in.Description)
		svc.DefaultRate = in.DefaultRate.Value.Round(2)
		if err := tx.Save(svc).Error; err != nil {
			return err
		}
		out = svc
		return nil
	})
	return out, err
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Service{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "service")
	}
	return nil
}
