package services

import (
	"context"
	"time"

	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats are the headline numbers of the home screen.
type DashboardStats struct {
	TotalClients      int64           `json:"total_clients"`
	ActiveQuotes      int64           `json:"active_quotes"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
	OverdueInvoices   int64           `json:"overdue_invoices"`
}

type DashboardService struct {
	db  *gorm.DB
	Now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, Now: time.Now}
}

// Stats computes the dashboard figures. Outstanding sums positive balances of
// unpaid invoices; revenue counts payments dated in the current month.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	now := s.Now()
	st := &DashboardStats{OutstandingAmount: decimal.Zero, MonthlyRevenue: decimal.Zero}

	if err := db.Model(&models.Client{}).Count(&st.TotalClients).Error; err != nil {
		return nil, err
	}
	err := db.Model(&models.Quote{}).
		Where("status IN ?", []models.QuoteStatus{models.QuoteStatusDraft, models.QuoteStatusSent}).
		Count(&st.ActiveQuotes).Error
	if err != nil {
		return nil, err
	}

	var open []models.Invoice
	err = db.Where("status <> ?", models.InvoiceStatusPaid).Preload("Payments").Find(&open).Error
	if err != nil {
		return nil, err
	}
	for i := range open {
		inv := &open[i]
		if bal := billing.Balance(inv.Total, inv.PaymentAmounts()); bal.IsPositive() {
			st.OutstandingAmount = st.OutstandingAmount.Add(bal)
		}
		if inv.Status == models.InvoiceStatusOverdue || inv.IsPastDue(now) {
			st.OverdueInvoices++
		}
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	var amounts []decimal.Decimal
	err = db.Model(&models.Payment{}).Where("date >= ? AND date < ?", first, next).Pluck("amount", &amounts).Error
	if err != nil {
		return nil, err
	}
	for _, a := range amounts {
		st.MonthlyRevenue = st.MonthlyRevenue.Add(a)
	}
	st.MonthlyRevenue = st.MonthlyRevenue.Round(billing.MoneyPlaces)
	st.OutstandingAmount = st.OutstandingAmount.Round(billing.MoneyPlaces)
	return st, nil
}
