package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/billing"
	"github.com/diewo77/go-crm/internal/models"
	"github.com/diewo77/go-crm/internal/services"
)

type sendRequest struct {
	Message string `json:"message"`
}

// sendResponse reports a send. EmailSent is false when the transport failed
// after the audit row and status change were committed.
type sendResponse struct {
	EmailSent     bool             `json:"email_sent"`
	DeliveryError string           `json:"delivery_error,omitempty"`
	EmailLog      *models.EmailLog `json:"email_log"`
}

// sendFunc is Dispatcher.SendQuote or Dispatcher.SendInvoice.
type sendFunc func(r *http.Request, id uint, message string) (*models.EmailLog, error)

func serveSend(w http.ResponseWriter, r *http.Request, send sendFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req sendRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	log, err := send(r, id, req.Message)
	var te *services.TransportError
	switch {
	case errors.As(err, &te):
		httpx.JSON(w, http.StatusAccepted, sendResponse{DeliveryError: te.Err.Error(), EmailLog: log})
	case err != nil:
		writeError(w, r, err)
	default:
		httpx.JSON(w, http.StatusOK, sendResponse{EmailSent: true, EmailLog: log})
	}
}

func writePDF(w http.ResponseWriter, r *http.Request, doc billing.Document, render func(billing.Document) ([]byte, error)) {
	out, err := render(doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// itemsPath is the shared shape of the item sub-resource handlers.
type itemsPath struct {
	docID, itemID uint
}

func parseItemsPath(r *http.Request, withItem bool) (itemsPath, error) {
	var p itemsPath
	var err error
	if p.docID, err = pathID(r, "id"); err != nil {
		return p, err
	}
	if withItem {
		if p.itemID, err = pathID(r, "itemID"); err != nil {
			return p, err
		}
	}
	return p, nil
}
