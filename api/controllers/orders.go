package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pisakart/pisakart-backend/api/responses"
	"github.com/pisakart/pisakart-backend/api/validators"
	"github.com/pisakart/pisakart-backend/internal/orders"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/logger"
	"github.com/pisakart/pisakart-backend/pkg/pagination"
)

// CreateOrder stores a checkout with its frozen address snapshot.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req orders.CreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Create(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, res)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := pagination.FromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), pagination.Clamp(limit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// MyOrders returns a customer's orders joined with their carts.
func MyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		code := chi.URLParam(r, "code")
		ctx := logg.WithCustomerCode(r.Context(), code)

		rows, err := svc.MyOrders(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
