package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/access"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/notify"
	"github.com/diewo77/go-crm/internal/pdf"
	"github.com/diewo77/go-crm/internal/services"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	DB             *gorm.DB
	Sessions       *auth.Sessions
	Gate           *access.Gate
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string

	Clients    *services.ClientService
	Catalog    *services.CatalogService
	Quotes     *services.QuoteService
	Invoices   *services.InvoiceService
	Payments   *services.PaymentService
	Emails     *services.EmailLogService
	Dashboard  *services.DashboardService
	Users      *services.UserService
	Dispatcher *notify.Dispatcher
	PDF        *pdf.Renderer
}

// NewRouter mounts the API. Everything under /api except login, signup and
// logout needs a session; each route then checks its own permission.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(d.Sessions.Middleware)

	r.Get("/health", Health)
	r.Get("/healthz", Ready(d.DB))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	authH := NewAuthHandler(d.Users, d.Sessions, d.Gate)
	clients := NewClientHandler(d.Clients)
	catalog := NewCatalogHandler(d.Catalog)
	quotes := NewQuoteHandler(d.Quotes, d.Dispatcher, d.PDF, d.Metrics)
	invoices := NewInvoiceHandler(d.Invoices, d.Dispatcher, d.PDF, d.Metrics)
	payments := NewPaymentHandler(d.Payments)
	emails := NewEmailHandler(d.Emails)
	dashboard := NewDashboardHandler(d.Dashboard)
	admin := NewAdminHandler(d.Users, d.Gate)
	can := d.Gate.RequirePermission

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/signup", authH.Signup)
		r.Post("/auth/logout", authH.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/me", authH.Me)

			r.Route("/clients", func(r chi.Router) {
				r.With(can(access.ResourceClient, access.ActionList)).Get("/", clients.List)
				r.With(can(access.ResourceClient, access.ActionCreate)).Post("/", clients.Create)
				r.With(can(access.ResourceClient, access.ActionView)).Get("/{id}", clients.Get)
				r.With(can(access.ResourceClient, access.ActionView)).Get("/{id}/summary", clients.Summary)
				r.With(can(access.ResourceClient, access.ActionUpdate)).Put("/{id}", clients.Update)
				r.With(can(access.ResourceClient, access.ActionDelete)).Delete("/{id}", clients.Delete)
			})

			r.Route("/services", func(r chi.Router) {
				r.With(can(access.ResourceService, access.ActionList)).Get("/", catalog.List)
				r.With(can(access.ResourceService, access.ActionCreate)).Post("/", catalog.Create)
				r.With(can(access.ResourceService, access.ActionView)).Get("/{id}", catalog.Get)
				r.With(can(access.ResourceService, access.ActionUpdate)).Put("/{id}", catalog.Update)
				r.With(can(access.ResourceService, access.ActionDelete)).Delete("/{id}", catalog.Delete)
			})

			r.Route("/quotes", func(r chi.Router) {
				r.With(can(access.ResourceQuote, access.ActionList)).Get("/", quotes.List)
				r.With(can(access.ResourceQuote, access.ActionCreate)).Post("/", quotes.Create)
				r.With(can(access.ResourceQuote, access.ActionView)).Get("/{id}", quotes.Get)
				r.With(can(access.ResourceQuote, access.ActionView)).Get("/{id}/pdf", quotes.PDF)
				r.With(can(access.ResourceQuote, access.ActionUpdate)).Put("/{id}", quotes.Update)
				r.With(can(access.ResourceQuote, access.ActionDelete)).Delete("/{id}", quotes.Delete)
				r.With(can(access.ResourceQuote, access.ActionUpdate)).Post("/{id}/items", quotes.AddItem)
				r.With(can(access.ResourceQuote, access.ActionUpdate)).Put("/{id}/items/{itemID}", quotes.UpdateItem)
				r.With(can(access.ResourceQuote, access.ActionUpdate)).Delete("/{id}/items/{itemID}", quotes.RemoveItem)
				r.With(can(access.ResourceQuote, access.ActionSend)).Post("/{id}/send", quotes.Send)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.With(can(access.ResourceInvoice, access.ActionList)).Get("/", invoices.List)
				r.With(can(access.ResourceInvoice, access.ActionCreate)).Post("/", invoices.Create)
				r.With(can(access.ResourceInvoice, access.ActionCreate)).Post("/from-quote/{quoteID}", invoices.FromQuote)
				r.With(can(access.ResourceInvoice, access.ActionView)).Get("/{id}", invoices.Get)
				r.With(can(access.ResourceInvoice, access.ActionView)).Get("/{id}/pdf", invoices.PDF)
				r.With(can(access.ResourceInvoice, access.ActionUpdate)).Put("/{id}", invoices.Update)
				r.With(can(access.ResourceInvoice, access.ActionDelete)).Delete("/{id}", invoices.Delete)
				r.With(can(access.ResourceInvoice, access.ActionUpdate)).Post("/{id}/items", invoices.AddItem)
				r.With(can(access.ResourceInvoice, access.ActionUpdate)).Put("/{id}/items/{itemID}", invoices.UpdateItem)
				r.With(can(access.ResourceInvoice, access.ActionUpdate)).Delete("/{id}/items/{itemID}", invoices.RemoveItem)
				r.With(can(access.ResourceInvoice, access.ActionSend)).Post("/{id}/send", invoices.Send)
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(can(access.ResourcePayment, access.ActionList)).Get("/", payments.List)
				r.With(can(access.ResourcePayment, access.ActionCreate)).Post("/", payments.Create)
				r.With(can(access.ResourcePayment, access.ActionView)).Get("/{id}", payments.Get)
				r.With(can(access.ResourcePayment, access.ActionUpdate)).Put("/{id}", payments.Update)
				r.With(can(access.ResourcePayment, access.ActionDelete)).Delete("/{id}", payments.Delete)
			})

			r.With(can(access.ResourceEmail, access.ActionList)).Get("/emails", emails.List)
			r.With(can(access.ResourceEmail, access.ActionView)).Get("/emails/{id}", emails.Get)
			r.With(can(access.ResourceDashboard, access.ActionView)).Get("/dashboard", dashboard.Stats)

			r.Route("/admin", func(r chi.Router) {
				r.Use(d.Gate.RequireAdmin())
				r.Get("/users", admin.ListUsers)
				r.Put("/users/{id}/role", admin.UpdateRole)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	return r
}
