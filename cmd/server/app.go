package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/access"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/handlers"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/notify"
	"github.com/diewo77/go-crm/internal/pdf"
	"github.com/diewo77/go-crm/internal/services"
)

// roleCacheTTL bounds how long a role change takes to reach other sessions.
const roleCacheTTL = time.Minute

// App holds the wired HTTP handler and the pieces tests reach into.
type App struct {
	Handler http.Handler
	Metrics *metrics.Metrics
	Users   *services.UserService
}

// NewApp builds services, transports and the router from cfg.
func NewApp(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*App, error) {
	sender, err := newSender(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	logo, err := mail.LoadLogo(cfg.Mail.LogoPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	numbers := services.NewNumberAllocator()
	quotes := services.NewQuoteService(db, numbers)
	quotes.ValidityDays = cfg.App.QuoteValidityDays
	invoices := services.NewInvoiceService(db, numbers)
	invoices.TermDays = cfg.App.PaymentTermDays
	emails := services.NewEmailLogService(db)
	users := services.NewUserService(db)

	company := notify.Company{Name: cfg.Mail.CompanyName, Phone: cfg.Mail.CompanyPhone, Email: cfg.Mail.FromAddress}
	renderer, err := notify.NewRenderer(company, logo != nil)
	if err != nil {
		return nil, err
	}
	dispatcher := notify.NewDispatcher(notify.Deps{
		Quotes:   quotes,
		Invoices: invoices,
		Emails:   emails,
		Sender:   sender,
		Renderer: renderer,
		Metrics:  m,
		Logger:   logger,
	}, mail.Address{Name: cfg.Mail.FromName, Email: cfg.Mail.FromAddress}, logo)

	pdfCompany := pdf.Company{Name: company.Name, Phone: company.Phone, Email: company.Email}
	if logo != nil {
		if ext, ok := pdf.LogoExtension(logo.MIMEType); ok {
			pdfCompany.Logo, pdfCompany.LogoExt = logo.Data, ext
		} else {
			logger.Warn("logo format not supported in PDFs", "mime", logo.MIMEType)
		}
	}

	sessions := auth.NewSessions(cfg.App.SessionSecret, cfg.App.SessionTTL, cfg.App.Production())
	sessions.SetUserVerifier(users.Exists)

	h := handlers.NewRouter(handlers.Deps{
		DB:             db,
		Sessions:       sessions,
		Gate:           access.NewGate(db, roleCacheTTL),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.App.AllowedOrigins,
		Clients:        services.NewClientService(db),
		Catalog:        services.NewCatalogService(db),
		Quotes:         quotes,
		Invoices:       invoices,
		Payments:       services.NewPaymentService(db),
		Emails:         emails,
		Dashboard:      services.NewDashboardService(db),
		Users:          users,
		Dispatcher:     dispatcher,
		PDF:            pdf.NewRenderer(pdfCompany),
	})
	return &App{Handler: h, Metrics: m, Users: users}, nil
}

func newSender(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.Provider {
	case "sendgrid":
		return mail.NewSendGridSender(cfg.SendGridAPIKey, logger)
	case "log", "":
		return mail.NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}
