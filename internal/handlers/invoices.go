package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/metrics"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/notify"
	"github.com/diewo77/go-crm/internal/pdf"
	"github.com/diewo77/go-crm/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	dispatch *notify.Dispatcher
	pdf      *pdf.Renderer
	metrics  *metrics.Metrics
}

func NewInvoiceHandler(invoices *services.InvoiceService, dispatch *notify.Dispatcher, pdfs *pdf.Renderer, m *metrics.Metrics) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, dispatch: dispatch, pdf: pdfs, metrics: m}
}

// List filters by ?status, ?client_id and ?search (invoice number).
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.InvoiceStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, invalidField("status", "invalid_status"))
		return
	}
	page := httpx.ParsePage(r)
	f := services.InvoiceFilter{Status: status, ClientID: clientID, Search: r.URL.Query().Get("search")}
	items, total, err := h.invoices.List(r.Context(), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(items, total, page))
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.DocumentCreated(string(models.EmailTypeInvoice))
	httpx.JSON(w, http.StatusCreated, inv)
}

// FromQuote converts an accepted quote. A quote converts at most once.
func (h *InvoiceHandler) FromQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := pathID(r, "quoteID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.CreateFromQuote(r.Context(), quoteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.DocumentCreated(string(models.EmailTypeInvoice))
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.InvoiceInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.invoices.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	p, err := parseItemsPath(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ItemInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.AddItem(r.Context(), p.docID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	p, err := parseItemsPath(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ItemInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.UpdateItem(r.Context(), p.docID, p.itemID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, err := parseItemsPath(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.RemoveItem(r.Context(), p.docID, p.itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	serveSend(w, r, func(r *http.Request, id uint, msg string) (*models.EmailLog, error) {
		return h.dispatch.SendInvoice(r.Context(), id, msg)
	})
}

func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, r, billing.InvoiceDocument(&inv.Invoice), h.pdf.Invoice)
}
