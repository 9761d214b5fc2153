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

type QuoteHandler struct {
	quotes   *services.QuoteService
	dispatch *notify.Dispatcher
	pdf      *pdf.Renderer
	metrics  *metrics.Metrics
}

func NewQuoteHandler(quotes *services.QuoteService, dispatch *notify.Dispatcher, pdfs *pdf.Renderer, m *metrics.Metrics) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, dispatch: dispatch, pdf: pdfs, metrics: m}
}

// List filters by ?status, ?client_id and ?search (quote number or client name).
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.QuoteStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, invalidField("status", "invalid_status"))
		return
	}
	page := httpx.ParsePage(r)
	f := services.QuoteFilter{Status: status, ClientID: clientID, Search: r.URL.Query().Get("search")}
	items, total, err := h.quotes.List(r.Context(), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(items, total, page))
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.QuoteInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.DocumentCreated(string(models.EmailTypeQuote))
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.QuoteInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.quotes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) AddItem(w http.ResponseWriter, r *http.Request) {
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
	q, err := h.quotes.AddItem(r.Context(), p.docID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
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
	q, err := h.quotes.UpdateItem(r.Context(), p.docID, p.itemID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *QuoteHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, err := parseItemsPath(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.RemoveItem(r.Context(), p.docID, p.itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// Send emails the quote; the body may carry {"message": "..."}.
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	serveSend(w, r, func(r *http.Request, id uint, msg string) (*models.EmailLog, error) {
		return h.dispatch.SendQuote(r.Context(), id, msg)
	})
}

func (h *QuoteHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, r, billing.QuoteDocument(q), h.pdf.Quote)
}
