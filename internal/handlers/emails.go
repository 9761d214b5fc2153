package handlers

import (
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
)

// EmailHandler exposes the read-only email audit trail.
type EmailHandler struct {
	emails *services.EmailLogService
}

func NewEmailHandler(emails *services.EmailLogService) *EmailHandler {
	return &EmailHandler{emails: emails}
}

func (h *EmailHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryID(r, "client_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := models.EmailType(r.URL.Query().Get("type"))
	if kind != "" && kind != models.EmailTypeQuote && kind != models.EmailTypeInvoice {
		writeError(w, r, invalidField("type", "invalid_type"))
		return
	}
	page := httpx.ParsePage(r)
	items, total, err := h.emails.List(r.Context(), services.EmailFilter{Type: kind, ClientID: clientID}, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewList(items, total, page))
}

func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.emails.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}
