package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pisakart/pisakart-backend/api/responses"
	"github.com/pisakart/pisakart-backend/api/validators"
	"github.com/pisakart/pisakart-backend/internal/addresshistory"
	"github.com/pisakart/pisakart-backend/internal/customers"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/logger"
	"github.com/pisakart/pisakart-backend/pkg/pagination"
)

// AddAddress appends an address to an existing customer.
func AddAddress(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customers service unavailable"))
			return
		}

		var req customers.CreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := chi.URLParam(r, "code")
		ctx := logg.WithCustomerCode(r.Context(), code)

		if err := svc.AddAddress(ctx, code, req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "added"})
	}
}

// RecordAddress logs an address selection event. Payloads that are not
// selections are acknowledged without being stored.
func RecordAddress(svc addresshistory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address history service unavailable"))
			return
		}

		// Non-selection payloads are acknowledged as-is, so the strict
		// field rules only apply once the type is known.
		var entry addresshistory.Entry
		if err := validators.DecodeLenientBody(r, &entry); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if strings.TrimSpace(entry.Type) == addresshistory.KindSelected {
			if err := validators.ValidateStruct(entry); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		id, recorded, err := svc.RecordSelection(r.Context(), entry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"recorded": recorded, "id": id})
	}
}

func GetAddressHistory(svc addresshistory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address history service unavailable"))
			return
		}

		limit, err := pagination.FromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), pagination.Clamp(limit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// DeleteAddress removes one history entry and echoes it back for undo.
func DeleteAddress(svc addresshistory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address history service unavailable"))
			return
		}

		id := strings.TrimSpace(r.URL.Query().Get("id"))
		removed, err := svc.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, removed)
	}
}

func ClearAddressHistory(svc addresshistory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address history service unavailable"))
			return
		}

		count, err := svc.Clear(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": count})
	}
}

func RestoreAddress(svc addresshistory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address history service unavailable"))
			return
		}

		var entry addresshistory.Entry
		if err := validators.DecodeJSONBody(r, &entry); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.Restore(r.Context(), entry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": id})
	}
}
