// Package handlers exposes the CRM services as a JSON API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/access"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/validation"
)

// writeError maps service errors onto status codes. Unexpected errors are
// logged and answered with a bare internal_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *services.ValidationError
		ce *services.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", ve.Fields)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.As(err, &ce):
		httpx.JSONError(w, http.StatusConflict, ce.Code, ce.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, access.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func invalidField(field, code string) error {
	return &services.ValidationError{Fields: validation.Violations{field: code}}
}

// pathID reads a numeric chi URL parameter.
func pathID(r *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || n == 0 {
		return 0, invalidField(name, "invalid_id")
	}
	return uint(n), nil
}

// queryID reads an optional numeric query parameter; absent means 0.
func queryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, invalidField(name, "invalid_id")
	}
	return uint(n), nil
}

// decode reads a required JSON body.
func decode(r *http.Request, dst any) error {
	if err := httpx.Decode(r, dst); err != nil {
		if errors.Is(err, httpx.ErrEmptyBody) {
			return invalidField("body", "required")
		}
		return invalidField("body", "invalid_json")
	}
	return nil
}

// decodeOptional is decode for bodies that may be omitted.
func decodeOptional(r *http.Request, dst any) error {
	if err := httpx.Decode(r, dst); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		return invalidField("body", "invalid_json")
	}
	return nil
}
